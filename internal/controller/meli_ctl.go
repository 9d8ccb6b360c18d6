package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/middleware"
	"meli_hub_v1/internal/service"
)

type MeliController struct {
	meliSvc *service.MeliService
	// 回调成功后跳回前端
	frontendURL string
}

func NewMeliController(meliSvc *service.MeliService, frontendURL string) *MeliController {
	return &MeliController{
		meliSvc:     meliSvc,
		frontendURL: frontendURL,
	}
}

// Auth 跳转 Meli 授权页
// @Summary 跳转 Mercado Libre OAuth 授权页
// @Description 302 跳转到 Meli 授权地址，state 由服务端生成并缓存
// @Tags Meli (平台对接)
// @Security BearerAuth
// @Success 302 "跳转授权页"
// @Router /api/meli/auth [get]
func (c *MeliController) Auth(ctx *gin.Context) {
	url, err := c.meliSvc.GetAuthURL(middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Redirect(http.StatusFound, url)
}

// AuthURL 返回授权地址 (前端自己跳)
// @Summary 获取 Mercado Libre 授权地址
// @Tags Meli (平台对接)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AuthURLResponse "授权地址"
// @Router /api/meli/auth-url [get]
func (c *MeliController) AuthURL(ctx *gin.Context) {
	url, err := c.meliSvc.GetAuthURL(middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.AuthURLResponse{URL: url})
}

// Callback OAuth 回调
// @Summary Mercado Libre OAuth 回调
// @Description Meli 带 code/state 回跳，换 Token 落库后 302 回前端
// @Tags Meli (平台对接)
// @Param code query string true "授权码"
// @Param state query string true "防 CSRF state"
// @Success 302 "跳回前端"
// @Failure 400 {object} map[string]string "code/state 无效"
// @Router /api/meli/callback [get]
func (c *MeliController) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")

	if _, err := c.meliSvc.HandleCallback(ctx.Request.Context(), code, state); err != nil {
		respondError(ctx, err)
		return
	}

	redirect := c.frontendURL
	if strings.Contains(redirect, "?") {
		redirect += "&meli=connected"
	} else {
		redirect += "?meli=connected"
	}
	ctx.Redirect(http.StatusFound, redirect)
}

// Status 授权状态
// @Summary 查询 Meli 授权状态
// @Tags Meli (平台对接)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MeliStatusResponse "授权状态"
// @Router /api/meli/status [get]
func (c *MeliController) Status(ctx *gin.Context) {
	connected := c.meliSvc.HasValidToken(ctx.Request.Context(), middleware.GetOwnerID(ctx))
	ctx.JSON(http.StatusOK, dto.MeliStatusResponse{Connected: connected})
}

// Me Meli 卖家信息
// @Summary 获取已授权的 Meli 卖家信息
// @Tags Meli (平台对接)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MeliProfileResponse "卖家信息"
// @Failure 401 {object} map[string]string "Token 无效或未授权"
// @Router /api/meli/me [get]
func (c *MeliController) Me(ctx *gin.Context) {
	resp, err := c.meliSvc.GetProfile(ctx.Request.Context(), middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// MyItems 卖家在售 item ID 列表
// @Summary 列出卖家在售 item
// @Tags Meli (平台对接)
// @Produce json
// @Security BearerAuth
// @Param limit query int false "返回条数 (默认 50)"
// @Param offset query int false "分页偏移"
// @Success 200 {object} meli.SearchResp "在售列表"
// @Router /api/meli/my-items [get]
func (c *MeliController) MyItems(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	resp, err := c.meliSvc.ListOwnItems(ctx.Request.Context(), middleware.GetOwnerID(ctx), limit, offset)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Import 导入单个刊登
// @Summary 按 ID 或 URL 导入单个刊登并落库
// @Tags Meli (平台对接)
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "Meli item/product ID 或商品 URL" example(MLA123456789)
// @Success 200 {object} dto.PublicationInfo "导入的刊登"
// @Failure 404 {object} map[string]string "item 不存在"
// @Failure 429 {object} map[string]string "导入过于频繁"
// @Router /api/meli/import/{itemId} [get]
func (c *MeliController) Import(ctx *gin.Context) {
	ownerID := middleware.GetOwnerID(ctx)

	// 导入要打好几个 Meli 接口，加个冷却
	check := middleware.GetLimiter().Check(
		middleware.OwnerSyncKey(ownerID, middleware.SyncTypeImport),
		middleware.GetInterval(middleware.SyncTypeImport),
	)
	if !check.Allowed {
		ctx.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "导入过于频繁，请稍后再试",
			"retry_after": check.RetryAfter.Seconds(),
		})
		return
	}

	resp, err := c.meliSvc.ImportItem(ctx.Request.Context(), ctx.Param("itemId"), ownerID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Sync 批量同步在售刊登
// @Summary 拉取卖家在售列表并逐个落库
// @Tags Meli (平台对接)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SyncRequest false "分页参数"
// @Success 200 {object} dto.SyncResponse "同步统计"
// @Failure 429 {object} map[string]string "同步过于频繁"
// @Router /api/meli/sync [post]
func (c *MeliController) Sync(ctx *gin.Context) {
	ownerID := middleware.GetOwnerID(ctx)

	check := middleware.GetLimiter().Check(
		middleware.OwnerSyncKey(ownerID, middleware.SyncTypeItems),
		middleware.GetInterval(middleware.SyncTypeItems),
	)
	if !check.Allowed {
		ctx.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "同步过于频繁，请稍后再试",
			"retry_after": check.RetryAfter.Seconds(),
		})
		return
	}

	var req dto.SyncRequest
	// body 可为空，空 body 用默认分页
	_ = ctx.ShouldBindJSON(&req)
	if req.Limit <= 0 {
		req.Limit = 50
	}

	resp, err := c.meliSvc.SyncOwnItems(ctx.Request.Context(), ownerID, req.Limit, req.Offset)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Categories 类目列表
// @Summary 列类目 (不传 parent_id 为站点根类目)
// @Tags Meli (平台对接)
// @Produce json
// @Security BearerAuth
// @Param parent_id query string false "父类目 ID"
// @Success 200 {array} dto.CategoryInfo "类目列表"
// @Router /api/meli/categories [get]
func (c *MeliController) Categories(ctx *gin.Context) {
	resp, err := c.meliSvc.GetCategories(ctx.Request.Context(), ctx.Query("parent_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
