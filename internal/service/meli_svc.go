package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/model"
	"meli_hub_v1/internal/repository"
	"meli_hub_v1/pkg/config"
	"meli_hub_v1/pkg/meli"
	"meli_hub_v1/pkg/utils"
)

// Token 过期缓冲：提前 1 分钟刷新，避免拿临界 Token 去请求
const tokenExpiryBuffer = 60 * time.Second

// 从任意文本 (裸 ID / 带横杠 ID / 整条商品 URL) 里抽取 Meli item/product ID
var meliIDPattern = regexp.MustCompile(`(?i)(ML[A-Z]{0,2})-?(\d{5,})`)

// ==================== MeliService Meli 开放平台服务 ====================

// MeliService 封装 Meli OAuth 凭证生命周期与商品接口
type MeliService struct {
	TokenRepo repository.TokenRepository
	// PubSvc 由 main 装配，二者互相引用 (发布/导入后要落库，落库层更新时要反向推远端)
	PubSvc *PublicationService

	Client *resty.Client
	Cfg    config.MeliConfig

	// 基地址可注入，测试时指向 httptest 服务器
	APIBase  string
	AuthBase string
}

// NewMeliService 创建 Meli 服务
func NewMeliService(tokenRepo repository.TokenRepository, client *resty.Client, cfg config.MeliConfig) *MeliService {
	return &MeliService{
		TokenRepo: tokenRepo,
		Client:    client,
		Cfg:       cfg,
		APIBase:   meli.DefaultAPIBase,
		AuthBase:  meli.DefaultAuthBase,
	}
}

// ==================== OAuth 授权流程 ====================

// GetAuthURL 生成 Meli 授权跳转地址
// state 随机生成并缓存 10 分钟，回调时校验防 CSRF
func (s *MeliService) GetAuthURL(ownerID string) (string, error) {
	if s.Cfg.ClientID == "" {
		return "", fmt.Errorf("%w: MELI_CLIENT_ID 未配置", ErrServiceUnavailable)
	}

	state := uuid.NewString()
	utils.SetCache(state, ownerID)

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", s.Cfg.ClientID)
	params.Set("redirect_uri", s.Cfg.RedirectURI)
	params.Set("state", state)

	return s.AuthBase + "/authorization?" + params.Encode(), nil
}

// HandleCallback 处理 OAuth 回调：校验 state、换 Token、落库
func (s *MeliService) HandleCallback(ctx context.Context, code, state string) (*model.MeliToken, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: 缺少 code 参数", ErrBadRequest)
	}

	ownerID, ok := utils.GetCache(state)
	if !ok {
		return nil, ErrInvalidState
	}
	utils.DeleteCache(state) // 用完即焚

	resp, err := s.exchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, err
	}

	token := &model.MeliToken{
		OwnerID:      ownerID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		MeliUserID:   resp.UserID,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Status:       model.TokenStatusValid,
	}
	if err := s.TokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// exchangeCodeForToken 授权码换 Token
func (s *MeliService) exchangeCodeForToken(ctx context.Context, code string) (*meli.TokenResp, error) {
	var result meli.TokenResp

	resp, err := s.Client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"grant_type":    "authorization_code",
			"client_id":     s.Cfg.ClientID,
			"client_secret": s.Cfg.ClientSecret,
			"code":          code,
			"redirect_uri":  s.Cfg.RedirectURI,
		}).
		SetResult(&result).
		SetError(&result).
		Post(s.APIBase + "/oauth/token")
	if err != nil {
		return nil, fmt.Errorf("%w: 请求 Meli Token 接口失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() || result.Error != "" {
		log.Printf("[MeliService] MELI refused token exchange: status %d, error=%s", resp.StatusCode(), result.Error)
		return nil, fmt.Errorf("%w: 授权码换 Token 失败: %s", ErrUnauthorized, result.ErrorDescription)
	}
	return &result, nil
}

// refreshAccessToken 用 refresh_token 换新 Token，并回写同一行
func (s *MeliService) refreshAccessToken(ctx context.Context, token *model.MeliToken) (*model.MeliToken, error) {
	var result meli.TokenResp

	resp, err := s.Client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     s.Cfg.ClientID,
			"client_secret": s.Cfg.ClientSecret,
			"refresh_token": token.RefreshToken,
		}).
		SetResult(&result).
		SetError(&result).
		Post(s.APIBase + "/oauth/token")
	if err != nil {
		return nil, fmt.Errorf("%w: 请求 Meli Token 接口失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() || result.Error != "" {
		// 刷新被拒，标记该行作废，逼用户重新授权
		_ = s.TokenRepo.UpdateStatus(ctx, token.ID, model.TokenStatusInvalid)
		log.Printf("[MeliService] MELI refused token refresh: status %d, error=%s", resp.StatusCode(), result.Error)
		return nil, fmt.Errorf("%w: %s", ErrMeliTokenExpired, result.ErrorDescription)
	}

	token.AccessToken = result.AccessToken
	if result.RefreshToken != "" {
		token.RefreshToken = result.RefreshToken
	}
	token.TokenType = result.TokenType
	if result.Scope != "" {
		token.Scope = result.Scope
	}
	token.ExpiresAt = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	token.Status = model.TokenStatusValid

	if err := s.TokenRepo.Update(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// RefreshToken 立即刷新指定凭证并回写 (定时保活任务用，不等它临期到 buffer 以内)
func (s *MeliService) RefreshToken(ctx context.Context, token *model.MeliToken) error {
	if token.RefreshToken == "" {
		return ErrMeliTokenExpired
	}
	_, err := s.refreshAccessToken(ctx, token)
	return err
}

// EnsureAccessToken 返回一个可用的 access_token
// 优先级：环境变量覆盖 > 库里最新且未临期的 > 刷新后的
func (s *MeliService) EnsureAccessToken(ctx context.Context, ownerID string) (string, error) {
	if s.Cfg.OverrideToken != "" {
		return s.Cfg.OverrideToken, nil
	}

	token, err := s.latestToken(ctx, ownerID)
	if err != nil {
		return "", err
	}

	if !token.IsExpiringWithin(tokenExpiryBuffer) {
		return token.AccessToken, nil
	}

	if token.RefreshToken == "" {
		return "", ErrMeliTokenExpired
	}

	refreshed, err := s.refreshAccessToken(ctx, token)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// HasValidToken 是否存在可用授权 (不触发刷新)
func (s *MeliService) HasValidToken(ctx context.Context, ownerID string) bool {
	if s.Cfg.OverrideToken != "" {
		return true
	}
	token, err := s.latestToken(ctx, ownerID)
	if err != nil {
		return false
	}
	return !token.IsExpiringWithin(tokenExpiryBuffer)
}

func (s *MeliService) latestToken(ctx context.Context, ownerID string) (*model.MeliToken, error) {
	token, err := s.TokenRepo.GetLatestByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoMeliToken
		}
		return nil, err
	}
	return token, nil
}

// ==================== 卖家与商品查询 ====================

// GetProfile 获取卖家信息
func (s *MeliService) GetProfile(ctx context.Context, ownerID string) (*dto.MeliProfileResponse, error) {
	accessToken, err := s.EnsureAccessToken(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var profile meli.UserProfile
	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&profile).
		SetError(&apiErr).
		Get(s.APIBase + "/users/me")
	if err != nil {
		return nil, fmt.Errorf("%w: 请求卖家信息失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
			return nil, fmt.Errorf("%w: Meli Token 无效或已过期", ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: 获取卖家信息失败: %s", ErrServiceUnavailable, apiErr.Msg())
	}

	out := &dto.MeliProfileResponse{
		ID:       profile.ID,
		Nickname: profile.Nickname,
		Status:   profile.Status.SiteStatus,
	}
	// 用库里凭证的过期时间补充展示 (env 覆盖模式下没有)
	if token, err := s.latestToken(ctx, ownerID); err == nil {
		out.ExpiresAt = &token.ExpiresAt
	}
	return out, nil
}

// ListOwnItems 列出卖家在售 item ID (分页)
func (s *MeliService) ListOwnItems(ctx context.Context, ownerID string, limit, offset int) (*meli.SearchResp, error) {
	accessToken, err := s.EnsureAccessToken(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	profile, err := s.GetProfile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	req := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		req.SetQueryParam("offset", strconv.Itoa(offset))
	}

	var search meli.SearchResp
	var apiErr meli.APIError
	resp, err := req.
		SetResult(&search).
		SetError(&apiErr).
		Get(fmt.Sprintf("%s/users/%d/items/search", s.APIBase, profile.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: 请求在售列表失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
			return nil, fmt.Errorf("%w: Meli Token 无效或已过期", ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: 获取在售列表失败: %s", ErrServiceUnavailable, apiErr.Msg())
	}
	return &search, nil
}

// ==================== 导入与同步 ====================

// ExtractItemOrProductID 从裸 ID / 带横杠 ID / 整条 URL 里抽取规范化 ID
// 匹配失败返回 ErrBadRequest
func ExtractItemOrProductID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: 请提供 itemId、productId 或 Meli 商品 URL", ErrBadRequest)
	}

	// URL 里常见 %xx 编码，先解开再匹配
	if decoded, err := url.QueryUnescape(trimmed); err == nil {
		trimmed = decoded
	}

	m := meliIDPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", fmt.Errorf("%w: 无法从 %q 中解析出 Meli ID，请使用 MLA123... 形式或完整 URL", ErrBadRequest, raw)
	}
	return strings.ToUpper(m[1]) + m[2], nil
}

// ImportItem 按 ID 或 URL 导入单个刊登并落库
// ID 可能是 item_id 也可能是 product_id：先按 item 取，404 再按 product 取第一个关联 item
func (s *MeliService) ImportItem(ctx context.Context, rawID, ownerID string) (*dto.PublicationInfo, error) {
	parsedID, err := ExtractItemOrProductID(rawID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.EnsureAccessToken(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	actualID := parsedID
	item, err := s.fetchItem(ctx, parsedID, accessToken)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// 404 兜底：当作 product_id 再试一次
		items, perr := s.fetchItemsFromProduct(ctx, parsedID, accessToken)
		if perr != nil || len(items) == 0 {
			return nil, fmt.Errorf("%w: 找不到 ID 为 %s 的 item 或 product，请确认 ID 正确", ErrNotFound, parsedID)
		}
		actualID = items[0].ID
		item, err = s.fetchItem(ctx, actualID, accessToken)
		if err != nil {
			return nil, err
		}
	}

	// 描述是 best-effort，拿不到不阻塞导入
	desc := s.fetchItemDescription(ctx, actualID, accessToken)

	return s.PubSvc.UpsertFromMeli(ctx, item, desc, ownerID)
}

// SyncOwnItems 批量同步：拉在售列表，逐个导入
// 单条失败不中断，失败原因汇总在响应里
func (s *MeliService) SyncOwnItems(ctx context.Context, ownerID string, limit, offset int) (*dto.SyncResponse, error) {
	search, err := s.ListOwnItems(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}

	result := &dto.SyncResponse{Total: search.Paging.Total}
	for _, itemID := range search.Results {
		if _, err := s.ImportItem(ctx, itemID, ownerID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", itemID, err))
			log.Printf("[MeliService] 同步 item %s 失败: %v", itemID, err)
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ==================== 发布与变更 ====================

// meliItemBody POST/PUT /items 请求体
type meliItemBody struct {
	Title             string              `json:"title,omitempty"`
	CategoryID        string              `json:"category_id,omitempty"`
	Price             float64             `json:"price,omitempty"`
	CurrencyID        string              `json:"currency_id,omitempty"`
	AvailableQuantity int                 `json:"available_quantity,omitempty"`
	BuyingMode        string              `json:"buying_mode,omitempty"`
	Condition         string              `json:"condition,omitempty"`
	ListingTypeID     string              `json:"listing_type_id,omitempty"`
	Status            string              `json:"status,omitempty"`
	Shipping          *meliShipping       `json:"shipping,omitempty"`
	Attributes        []meliItemAttribute `json:"attributes,omitempty"`
	Pictures          []meliItemPicture   `json:"pictures,omitempty"`
}

type meliShipping struct {
	Mode string `json:"mode"`
}

type meliItemAttribute struct {
	ID        string `json:"id"`
	ValueName string `json:"value_name"`
}

type meliItemPicture struct {
	Source string `json:"source"`
}

// 沙箱环境可用的占位图，发布时没给图片就用它
const defaultTestPicture = "https://http2.mlstatic.com/storage/developers-site-cms-admin/openapi/319968618063-test_image.jpg"

// CreateItemFromApp 从本系统发布新商品到 Meli 并落库
func (s *MeliService) CreateItemFromApp(ctx context.Context, req *dto.PublishMeliRequest, ownerID string) (*dto.PublicationInfo, error) {
	accessToken, err := s.EnsureAccessToken(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// 1. 类目必须是叶子，否则 Meli 直接 400
	category, err := s.getCategoryDetail(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !category.IsLeaf() {
		return nil, fmt.Errorf("%w: 类目 %s 不是叶子类目，请选择子类目", ErrBadRequest, req.CategoryID)
	}

	// 2. 必填属性兜底
	attrs := []meliItemAttribute{
		{ID: "BRAND", ValueName: "Genérico"},
		{ID: "MODEL", ValueName: "Modelo genérico"},
	}
	// 手机类目 (MLA1055) 少了这三个属性会被 400
	if req.CategoryID == "MLA1055" {
		attrs = append(attrs,
			meliItemAttribute{ID: "COLOR", ValueName: "Negro"},
			meliItemAttribute{ID: "IS_DUAL_SIM", ValueName: "Sí"},
			meliItemAttribute{ID: "CARRIER", ValueName: "Liberado"},
		)
	}

	pictures := make([]meliItemPicture, 0, len(req.Pictures))
	for _, src := range req.Pictures {
		pictures = append(pictures, meliItemPicture{Source: src})
	}
	if len(pictures) == 0 {
		pictures = append(pictures, meliItemPicture{Source: defaultTestPicture})
	}

	body := meliItemBody{
		Title:             req.Title,
		CategoryID:        req.CategoryID,
		Price:             req.Price,
		CurrencyID:        "ARS",
		AvailableQuantity: req.AvailableQuantity,
		BuyingMode:        "buy_it_now",
		Condition:         "new",
		ListingTypeID:     "gold_special",
		Shipping:          &meliShipping{Mode: "not_specified"},
		Attributes:        attrs,
		Pictures:          pictures,
	}

	// 3. 创建 item
	var created struct {
		ID string `json:"id"`
	}
	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(body).
		SetResult(&created).
		SetError(&apiErr).
		Post(s.APIBase + "/items")
	if err != nil {
		return nil, fmt.Errorf("%w: 请求创建商品失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		log.Printf("[MeliService] MELI refused item creation: status %d, msg=%s", resp.StatusCode(), apiErr.Msg())
		if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
			return nil, fmt.Errorf("%w: Meli Token 无效或已过期", ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: Meli 拒绝创建商品: %s", ErrServiceUnavailable, apiErr.Msg())
	}

	// 4. 描述单独接口写入
	if req.Description != "" {
		if err := s.putDescription(ctx, created.ID, req.Description, accessToken, false); err != nil {
			return nil, err
		}
	}

	// 5. 回读落库 (以远端最终状态为准)
	item, err := s.fetchItem(ctx, created.ID, accessToken)
	if err != nil {
		return nil, err
	}
	desc := s.fetchItemDescription(ctx, created.ID, accessToken)
	return s.PubSvc.UpsertFromMeli(ctx, item, desc, ownerID)
}

// UpdateItemFromApp 推送变更到 Meli 并回读落库
func (s *MeliService) UpdateItemFromApp(ctx context.Context, meliItemID string, req *dto.UpdatePublicationRequest, ownerID string) (*dto.PublicationInfo, error) {
	accessToken, err := s.EnsureAccessToken(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// 部分更新：只带上调用方给了的字段。不能复用 meliItemBody，
	// omitempty 会把价格 0 / 库存 0 (售罄) 这类零值整个吞掉
	body := map[string]interface{}{}
	if req.Title != nil {
		body["title"] = *req.Title
	}
	if req.Price != nil {
		body["price"] = *req.Price
	}
	if req.AvailableQuantity != nil {
		body["available_quantity"] = *req.AvailableQuantity
	}
	if req.Status != nil {
		body["status"] = *req.Status
	}

	if len(body) > 0 {
		var apiErr meli.APIError
		resp, err := s.Client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetBody(body).
			SetError(&apiErr).
			Put(s.APIBase + "/items/" + meliItemID)
		if err != nil {
			return nil, fmt.Errorf("%w: 请求更新商品失败: %v", ErrServiceUnavailable, err)
		}
		if resp.IsError() {
			log.Printf("[MeliService] MELI refused item update: status %d, msg=%s", resp.StatusCode(), apiErr.Msg())
			return nil, fmt.Errorf("%w: Meli 拒绝更新商品: %s", ErrServiceUnavailable, apiErr.Msg())
		}
	}

	if req.Description != nil {
		if err := s.putDescription(ctx, meliItemID, *req.Description, accessToken, true); err != nil {
			return nil, err
		}
	}

	item, err := s.fetchItem(ctx, meliItemID, accessToken)
	if err != nil {
		return nil, err
	}
	desc := s.fetchItemDescription(ctx, meliItemID, accessToken)
	return s.PubSvc.UpsertFromMeli(ctx, item, desc, ownerID)
}

// PauseItem 远端暂停刊登
func (s *MeliService) PauseItem(ctx context.Context, meliItemID, ownerID string) error {
	accessToken, err := s.EnsureAccessToken(ctx, ownerID)
	if err != nil {
		return err
	}

	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(map[string]string{"status": "paused"}).
		SetError(&apiErr).
		Put(s.APIBase + "/items/" + meliItemID)
	if err != nil {
		return fmt.Errorf("%w: 请求暂停商品失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		log.Printf("[MeliService] MELI refused item pause: status %d, msg=%s", resp.StatusCode(), apiErr.Msg())
		return fmt.Errorf("%w: Meli 拒绝暂停商品: %s", ErrServiceUnavailable, apiErr.Msg())
	}
	return nil
}

// putDescription 写入/覆盖商品描述
// fallbackPut: 更新场景下部分老 item 要用 PUT 而非 POST
func (s *MeliService) putDescription(ctx context.Context, meliItemID, plainText, accessToken string, fallbackPut bool) error {
	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(map[string]string{"plain_text": plainText}).
		SetError(&apiErr).
		Post(s.APIBase + "/items/" + meliItemID + "/description")
	if err != nil {
		return fmt.Errorf("%w: 请求写入描述失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() && fallbackPut {
		resp, err = s.Client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetBody(map[string]string{"plain_text": plainText}).
			SetError(&apiErr).
			Put(s.APIBase + "/items/" + meliItemID + "/description")
		if err != nil {
			return fmt.Errorf("%w: 请求写入描述失败: %v", ErrServiceUnavailable, err)
		}
	}
	if resp.IsError() {
		log.Printf("[MeliService] MELI refused description write: status %d, msg=%s", resp.StatusCode(), apiErr.Msg())
		return fmt.Errorf("%w: Meli 拒绝保存描述: %s", ErrBadRequest, apiErr.Msg())
	}
	return nil
}

// ==================== 类目 ====================

// GetCategories 列类目：不传 parentID 返回站点根类目，传了返回其子类目
// 部分网络下根类目接口被 PolicyAgent 拦截，此时回退静态根类目表
func (s *MeliService) GetCategories(ctx context.Context, parentID string) ([]dto.CategoryInfo, error) {
	if parentID != "" {
		detail, err := s.getCategoryDetail(ctx, parentID)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				return nil, fmt.Errorf("%w: 当前网络下子类目被 Meli 拦截，请手动输入叶子类目 ID (如 MLA1055)", ErrBadRequest)
			}
			return nil, err
		}
		out := make([]dto.CategoryInfo, 0, len(detail.ChildrenCategories))
		for _, c := range detail.ChildrenCategories {
			out = append(out, dto.CategoryInfo{ID: c.ID, Name: c.Name})
		}
		return out, nil
	}

	var roots []meli.Category
	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetResult(&roots).
		SetError(&apiErr).
		Get(s.APIBase + "/sites/" + s.Cfg.SiteID + "/categories")
	if err != nil {
		return nil, fmt.Errorf("%w: 请求类目列表失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 403 && apiErr.IsPolicyBlocked() {
			// 静态兜底，别让前端直接空白
			return fallbackCategoryRoots, nil
		}
		return nil, fmt.Errorf("%w: 获取类目列表失败: %s", ErrServiceUnavailable, apiErr.Msg())
	}

	out := make([]dto.CategoryInfo, 0, len(roots))
	for _, c := range roots {
		out = append(out, dto.CategoryInfo{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (s *MeliService) getCategoryDetail(ctx context.Context, categoryID string) (*meli.Category, error) {
	var category meli.Category
	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetResult(&category).
		SetError(&apiErr).
		Get(s.APIBase + "/categories/" + categoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求类目详情失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 404 {
			return nil, fmt.Errorf("%w: 类目 %s 不存在", ErrNotFound, categoryID)
		}
		if resp.StatusCode() == 403 && apiErr.IsPolicyBlocked() {
			return nil, fmt.Errorf("%w: 类目接口被 PolicyAgent 拦截", ErrForbidden)
		}
		return nil, fmt.Errorf("%w: 获取类目详情失败: %s", ErrServiceUnavailable, apiErr.Msg())
	}
	return &category, nil
}

// ==================== item 抓取 ====================

// fetchItem 带 Token 取 item，401/403 时回退公开接口
func (s *MeliService) fetchItem(ctx context.Context, itemID, accessToken string) (*meli.Item, error) {
	var item meli.Item
	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&item).
		SetError(&apiErr).
		Get(s.APIBase + "/items/" + itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求 item 失败: %v", ErrServiceUnavailable, err)
	}
	if !resp.IsError() {
		return &item, nil
	}

	statusCode := resp.StatusCode()
	log.Printf("[MeliService] fetchItem %s 失败: status %d, msg=%s", itemID, statusCode, apiErr.Msg())

	// PolicyAgent 拦截：明确告知，不再回退
	if statusCode == 403 && apiErr.IsPolicyBlocked() {
		return nil, fmt.Errorf("%w: Meli 按策略 (PolicyAgent) 拦截了 item %s，换一个 ID 试试", ErrForbidden, itemID)
	}

	// Token 被拒时回退公开接口 (公开 item 无需鉴权)
	if statusCode == 401 || statusCode == 403 {
		if pub, perr := s.fetchItemPublic(ctx, itemID); perr == nil && pub != nil {
			return pub, nil
		} else if perr != nil && errors.Is(perr, ErrNotFound) {
			return nil, perr
		}
		if statusCode == 403 {
			return nil, fmt.Errorf("%w: Meli 不允许访问 item %s (403 access_denied)", ErrForbidden, itemID)
		}
		return nil, fmt.Errorf("%w: Meli Token 无效或已过期", ErrUnauthorized)
	}

	if statusCode == 404 {
		return nil, fmt.Errorf("%w: Meli 上找不到 item %s", ErrNotFound, itemID)
	}

	return nil, fmt.Errorf("%w: 获取 item 失败: %s (status %d)", ErrServiceUnavailable, apiErr.Msg(), statusCode)
}

// fetchItemPublic 不带 Token 取公开 item
func (s *MeliService) fetchItemPublic(ctx context.Context, itemID string) (*meli.Item, error) {
	var item meli.Item
	resp, err := s.Client.R().
		SetContext(ctx).
		SetResult(&item).
		Get(s.APIBase + "/items/" + itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求公开 item 失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 404 {
			return nil, fmt.Errorf("%w: Meli 上找不到 item %s", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("%w: 公开接口返回 status %d", ErrServiceUnavailable, resp.StatusCode())
	}
	return &item, nil
}

// fetchItemDescription 取描述，best-effort：带 Token 失败回退公开，再失败返回 nil
// 有些 item 压根没有描述接口，拿不到不算错误
func (s *MeliService) fetchItemDescription(ctx context.Context, itemID, accessToken string) *meli.ItemDescription {
	var desc meli.ItemDescription
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&desc).
		Get(s.APIBase + "/items/" + itemID + "/description")
	if err == nil && !resp.IsError() {
		return &desc
	}

	var publicDesc meli.ItemDescription
	resp, err = s.Client.R().
		SetContext(ctx).
		SetResult(&publicDesc).
		Get(s.APIBase + "/items/" + itemID + "/description")
	if err == nil && !resp.IsError() {
		return &publicDesc
	}
	return nil
}

// fetchItemsFromProduct 取 product 关联的 item 列表，鉴权失败回退公开接口
func (s *MeliService) fetchItemsFromProduct(ctx context.Context, productID, accessToken string) ([]meli.ProductItem, error) {
	var product meli.Product
	var apiErr meli.APIError
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&product).
		SetError(&apiErr).
		Get(s.APIBase + "/products/" + productID)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求 product 失败: %v", ErrServiceUnavailable, err)
	}
	if !resp.IsError() {
		return product.Items, nil
	}

	log.Printf("[MeliService] fetchItemsFromProduct %s 失败: status %d, msg=%s", productID, resp.StatusCode(), apiErr.Msg())

	// products 接口通常公开，回退一次
	var publicProduct meli.Product
	pubResp, perr := s.Client.R().
		SetContext(ctx).
		SetResult(&publicProduct).
		Get(s.APIBase + "/products/" + productID)
	if perr == nil && !pubResp.IsError() {
		return publicProduct.Items, nil
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, fmt.Errorf("%w: Meli Token 无效或已过期", ErrUnauthorized)
	}
	return nil, fmt.Errorf("%w: 获取 product 关联 item 失败: %s", ErrServiceUnavailable, apiErr.Msg())
}

// ==================== 静态类目兜底 ====================

// MLA 站点根类目快照，PolicyAgent 拦截时兜底用
var fallbackCategoryRoots = []dto.CategoryInfo{
	{ID: "MLA5725", Name: "Accesorios para Vehículos"},
	{ID: "MLA1512", Name: "Agro"},
	{ID: "MLA1403", Name: "Alimentos y Bebidas"},
	{ID: "MLA1071", Name: "Animales y Mascotas"},
	{ID: "MLA1367", Name: "Antigüedades y Colecciones"},
	{ID: "MLA1368", Name: "Arte, Librería y Mercería"},
	{ID: "MLA1743", Name: "Autos, Motos y Otros"},
	{ID: "MLA1384", Name: "Bebés"},
	{ID: "MLA1246", Name: "Belleza y Cuidado Personal"},
	{ID: "MLA1039", Name: "Cámaras y Accesorios"},
	{ID: "MLA1051", Name: "Celulares y Teléfonos"},
	{ID: "MLA1648", Name: "Computación"},
	{ID: "MLA1144", Name: "Consolas y Videojuegos"},
	{ID: "MLA1500", Name: "Construcción"},
	{ID: "MLA1276", Name: "Deportes y Fitness"},
	{ID: "MLA5726", Name: "Electrodomésticos y Aires Ac."},
	{ID: "MLA1000", Name: "Electrónica, Audio y Video"},
	{ID: "MLA2547", Name: "Entradas para Eventos"},
	{ID: "MLA407134", Name: "Herramientas"},
	{ID: "MLA1574", Name: "Hogar, Muebles y Jardín"},
	{ID: "MLA1499", Name: "Industrias y Oficinas"},
	{ID: "MLA1459", Name: "Inmuebles"},
	{ID: "MLA1182", Name: "Instrumentos Musicales"},
	{ID: "MLA3937", Name: "Joyas y Relojes"},
	{ID: "MLA1132", Name: "Juegos y Juguetes"},
	{ID: "MLA3025", Name: "Libros, Revistas y Comics"},
	{ID: "MLA1168", Name: "Música, Películas y Series"},
	{ID: "MLA1430", Name: "Ropa y Accesorios"},
	{ID: "MLA409431", Name: "Salud y Equipamiento Médico"},
	{ID: "MLA1540", Name: "Servicios"},
	{ID: "MLA9304", Name: "Souvenirs, Cotillón y Fiestas"},
	{ID: "MLA1953", Name: "Otras categorías"},
}
