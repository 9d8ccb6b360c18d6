package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/model"
	"meli_hub_v1/internal/repository"
	"meli_hub_v1/pkg/meli"
)

// 纯 MLA item ID，用于缺 permalink 时拼兜底链接
var mlaItemPattern = regexp.MustCompile(`(?i)^MLA(\d+)$`)

// ==================== PublicationService 刊登服务 ====================

// PublicationService 本地刊登档案的 CRUD 与远端联动
type PublicationService struct {
	PubRepo repository.PublicationRepository
	// MeliSvc 由 main 装配 (与 MeliService 互相引用)
	MeliSvc *MeliService
}

// NewPublicationService 创建刊登服务
func NewPublicationService(pubRepo repository.PublicationRepository) *PublicationService {
	return &PublicationService{PubRepo: pubRepo}
}

// ==================== 远端落库 ====================

// UpsertFromMeli 远端数据落库：存在则更新，不存在则新建
// 不碰 IsPausedLocally——本地暂停标记只受 Pause/Activate 控制
func (s *PublicationService) UpsertFromMeli(ctx context.Context, item *meli.Item, desc *meli.ItemDescription, ownerID string) (*dto.PublicationInfo, error) {
	// 远端原始快照进 jsonb，排查同步问题用
	snapshot, _ := json.Marshal(map[string]interface{}{
		"rawItem":        item,
		"rawDescription": desc,
	})
	now := time.Now()

	existing, err := s.PubRepo.GetByMeliItemID(ctx, item.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		existing.Title = item.Title
		existing.Price = item.Price
		existing.Status = item.Status
		existing.AvailableQuantity = item.AvailableQuantity
		existing.SoldQuantity = item.SoldQuantity
		existing.CategoryID = item.CategoryID
		if item.CurrencyID != "" {
			existing.CurrencyID = item.CurrencyID
		}
		if item.Permalink != "" {
			existing.Permalink = item.Permalink
		}
		if urls := item.PictureURLs(); len(urls) > 0 {
			existing.Pictures = pq.StringArray(urls)
		}
		if ownerID != "" {
			existing.OwnerID = ownerID
		}
		existing.Metadata = datatypes.JSON(snapshot)
		existing.MeliSyncedAt = &now

		if err := s.PubRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		if plain := desc.Plain(); plain != "" {
			if err := s.PubRepo.SaveDescription(ctx, &model.PublicationDescription{
				PublicationID: existing.ID,
				PlainText:     plain,
			}); err != nil {
				return nil, err
			}
		}
		return s.Get(ctx, existing.ID, ownerID)
	}

	pub := &model.Publication{
		OwnerID:           ownerID,
		MeliItemID:        item.ID,
		SiteID:            item.SiteID,
		Title:             item.Title,
		Price:             item.Price,
		CurrencyID:        item.CurrencyID,
		CategoryID:        item.CategoryID,
		AvailableQuantity: item.AvailableQuantity,
		SoldQuantity:      item.SoldQuantity,
		Permalink:         item.Permalink,
		Pictures:          pq.StringArray(item.PictureURLs()),
		Status:            item.Status,
		Metadata:          datatypes.JSON(snapshot),
		MeliSyncedAt:      &now,
	}
	if err := s.PubRepo.Create(ctx, pub); err != nil {
		return nil, s.mapSaveError(err)
	}

	if plain := desc.Plain(); plain != "" {
		if err := s.PubRepo.SaveDescription(ctx, &model.PublicationDescription{
			PublicationID: pub.ID,
			PlainText:     plain,
		}); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, pub.ID, ownerID)
}

// ==================== 本地 CRUD ====================

// Create 手工录入本地刊登 (不触达远端)
func (s *PublicationService) Create(ctx context.Context, req *dto.CreatePublicationRequest, ownerID string) (*dto.PublicationInfo, error) {
	status := req.Status
	if status == "" {
		status = model.PubStatusActive
	}

	pub := &model.Publication{
		OwnerID:           ownerID,
		MeliItemID:        req.MeliItemID,
		Title:             req.Title,
		Price:             req.Price,
		Status:            status,
		AvailableQuantity: req.AvailableQuantity,
		SoldQuantity:      req.SoldQuantity,
		CategoryID:        req.CategoryID,
	}
	if err := s.PubRepo.Create(ctx, pub); err != nil {
		return nil, s.mapSaveError(err)
	}

	if req.Description != "" {
		if err := s.PubRepo.SaveDescription(ctx, &model.PublicationDescription{
			PublicationID: pub.ID,
			PlainText:     req.Description,
		}); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, pub.ID, ownerID)
}

// CreateAndPublish 直接向 Meli 发布新商品并落库
func (s *PublicationService) CreateAndPublish(ctx context.Context, req *dto.PublishMeliRequest, ownerID string) (*dto.PublicationInfo, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: 未登录用户不能发布到 Mercado Libre", ErrConflict)
	}
	return s.MeliSvc.CreateItemFromApp(ctx, req, ownerID)
}

// List 分页列出本地刊登
func (s *PublicationService) List(ctx context.Context, query *dto.ListPublicationsQuery, ownerID string) (*dto.PublicationListResponse, error) {
	pubs, total, err := s.PubRepo.List(ctx, repository.PublicationFilter{
		OwnerID:    ownerID,
		Status:     query.Status,
		CategoryID: query.CategoryID,
		Search:     query.Search,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]dto.PublicationInfo, 0, len(pubs))
	for i := range pubs {
		list = append(list, *s.toInfo(&pubs[i]))
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	return &dto.PublicationListResponse{List: list, Total: total, Page: page}, nil
}

// Get 取单个刊登 (带描述)，归属不符按不存在处理
func (s *PublicationService) Get(ctx context.Context, id int64, ownerID string) (*dto.PublicationInfo, error) {
	pub, err := s.findOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return s.toInfo(pub), nil
}

// GetByMeliItemID 按 Meli item ID 取刊登，不存在返回 nil 而非错误
func (s *PublicationService) GetByMeliItemID(ctx context.Context, meliItemID, ownerID string) (*dto.PublicationInfo, error) {
	pub, err := s.PubRepo.GetByMeliItemID(ctx, meliItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if ownerID != "" && pub.OwnerID != "" && pub.OwnerID != ownerID {
		return nil, nil
	}
	return s.toInfo(pub), nil
}

// Update 更新刊登
// 已绑定 Meli item 且有归属时走远端更新再回读，否则仅改本地
func (s *PublicationService) Update(ctx context.Context, id int64, req *dto.UpdatePublicationRequest, ownerID string) (*dto.PublicationInfo, error) {
	pub, err := s.findOwnedForWrite(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if pub.MeliItemID != "" && ownerID != "" && s.MeliSvc.HasValidToken(ctx, ownerID) {
		updated, err := s.MeliSvc.UpdateItemFromApp(ctx, pub.MeliItemID, req, ownerID)
		if err != nil {
			return nil, fmt.Errorf("%w: 推送 Mercado Libre 更新失败: %v", ErrBadRequest, err)
		}
		return updated, nil
	}

	// 本地兜底更新
	if req.Title != nil {
		pub.Title = *req.Title
	}
	if req.Price != nil {
		pub.Price = *req.Price
	}
	if req.AvailableQuantity != nil {
		pub.AvailableQuantity = *req.AvailableQuantity
	}
	if req.Status != nil {
		pub.Status = *req.Status
	}
	if err := s.PubRepo.Update(ctx, pub); err != nil {
		return nil, s.mapSaveError(err)
	}

	if req.Description != nil {
		if err := s.PubRepo.SaveDescription(ctx, &model.PublicationDescription{
			PublicationID: pub.ID,
			PlainText:     *req.Description,
		}); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id, ownerID)
}

// Delete 删除本地刊登 (软删除，不触达远端)
func (s *PublicationService) Delete(ctx context.Context, id int64, ownerID string) error {
	pub, err := s.findOwnedForWrite(ctx, id, ownerID)
	if err != nil {
		return err
	}
	return s.PubRepo.Delete(ctx, pub.ID)
}

// ==================== 暂停与恢复 ====================

// Pause 暂停刊登
// 远端暂停是 best-effort：失败只记日志，本地标记照打
func (s *PublicationService) Pause(ctx context.Context, id int64, ownerID string) (*dto.PauseResponse, error) {
	pub, err := s.findOwnedForWrite(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	pausedInMeli := false
	if pub.MeliItemID != "" && ownerID != "" {
		if err := s.MeliSvc.PauseItem(ctx, pub.MeliItemID, ownerID); err != nil {
			log.Printf("[PublicationService] 远端暂停刊登 %d 失败: %v，仍然本地标记", id, err)
		} else {
			pausedInMeli = true
		}
	}

	// 只动暂停标记，别把整行覆盖回去
	if err := s.PubRepo.UpdateFields(ctx, pub.ID, map[string]interface{}{"is_paused_locally": true}); err != nil {
		return nil, err
	}

	info, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return &dto.PauseResponse{PausedInMeli: pausedInMeli, Publication: info}, nil
}

// Activate 恢复刊登，只清本地标记，不触达远端
func (s *PublicationService) Activate(ctx context.Context, id int64, ownerID string) (*dto.PublicationInfo, error) {
	pub, err := s.findOwnedForWrite(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.PubRepo.UpdateFields(ctx, pub.ID, map[string]interface{}{"is_paused_locally": false}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, ownerID)
}

// ==================== 内部辅助 ====================

// findOwned 按 ID 取刊登并校验归属，读场景归属不符按不存在处理 (不泄露他人数据的存在性)
func (s *PublicationService) findOwned(ctx context.Context, id int64, ownerID string) (*model.Publication, error) {
	pub, err := s.PubRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 刊登 %d 不存在", ErrNotFound, id)
		}
		return nil, err
	}
	if ownerID != "" && pub.OwnerID != "" && pub.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: 刊登 %d 不存在", ErrNotFound, id)
	}
	return pub, nil
}

// findOwnedForWrite 写场景的归属校验：跨用户改动按冲突报错
func (s *PublicationService) findOwnedForWrite(ctx context.Context, id int64, ownerID string) (*model.Publication, error) {
	pub, err := s.PubRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 刊登 %d 不存在", ErrNotFound, id)
		}
		return nil, err
	}
	if ownerID != "" && pub.OwnerID != "" && pub.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: 刊登 %d 属于其他用户", ErrConflict, id)
	}
	return pub, nil
}

func (s *PublicationService) mapSaveError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: 该 Meli item ID 已存在刊登", ErrConflict)
	}
	return err
}

func (s *PublicationService) toInfo(pub *model.Publication) *dto.PublicationInfo {
	permalink := pub.Permalink
	// 没存 permalink 但 ID 是标准 MLA item 时拼一个兜底链接
	if permalink == "" {
		if m := mlaItemPattern.FindStringSubmatch(pub.MeliItemID); m != nil {
			permalink = "https://articulo.mercadolibre.com.ar/MLA-" + m[1]
		}
	}

	info := &dto.PublicationInfo{
		ID:                pub.ID,
		MeliItemID:        strings.ToUpper(pub.MeliItemID),
		Permalink:         permalink,
		Title:             pub.Title,
		Price:             pub.Price,
		CurrencyID:        pub.CurrencyID,
		Status:            pub.Status,
		EffectiveStatus:   pub.EffectiveStatus(),
		AvailableQuantity: pub.AvailableQuantity,
		SoldQuantity:      pub.SoldQuantity,
		CategoryID:        pub.CategoryID,
		Pictures:          pub.Pictures,
		IsPausedLocally:   pub.IsPausedLocally,
		OwnerID:           pub.OwnerID,
		CreatedAt:         pub.CreatedAt,
		UpdatedAt:         pub.UpdatedAt,
	}
	if pub.Description != nil {
		info.Description = pub.Description.PlainText
	}
	return info
}
