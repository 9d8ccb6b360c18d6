package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/middleware"
	"meli_hub_v1/internal/service"
)

type PublicationController struct {
	pubSvc *service.PublicationService
}

func NewPublicationController(pubSvc *service.PublicationService) *PublicationController {
	return &PublicationController{
		pubSvc: pubSvc,
	}
}

// parseID 路径里的刊登 ID
func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的刊登ID"})
		return 0, false
	}
	return id, true
}

// Create 手工录入本地刊登
// @Summary 创建本地刊登 (不触达 Meli)
// @Tags Publication (刊登管理)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePublicationRequest true "刊登数据"
// @Success 201 {object} dto.PublicationInfo "创建成功"
// @Failure 409 {object} map[string]string "Meli item ID 已存在"
// @Router /api/publications [post]
func (c *PublicationController) Create(ctx *gin.Context) {
	var req dto.CreatePublicationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.pubSvc.Create(ctx.Request.Context(), &req, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// Publish 发布到 Meli
// @Summary 向 Mercado Libre 发布新商品并落库
// @Tags Publication (刊登管理)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PublishMeliRequest true "发布数据"
// @Success 201 {object} dto.PublicationInfo "发布成功"
// @Failure 400 {object} map[string]string "类目非叶子或参数错误"
// @Router /api/publications/meli [post]
func (c *PublicationController) Publish(ctx *gin.Context) {
	var req dto.PublishMeliRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.pubSvc.CreateAndPublish(ctx.Request.Context(), &req, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// List 刊登列表
// @Summary 分页查询本地刊登
// @Tags Publication (刊登管理)
// @Produce json
// @Security BearerAuth
// @Param status query string false "远端状态筛选"
// @Param category_id query string false "类目筛选"
// @Param search query string false "标题关键词"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.PublicationListResponse "刊登列表"
// @Router /api/publications [get]
func (c *PublicationController) List(ctx *gin.Context) {
	var query dto.ListPublicationsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.pubSvc.List(ctx.Request.Context(), &query, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Get 刊登详情
// @Summary 获取刊登详情 (含描述)
// @Tags Publication (刊登管理)
// @Produce json
// @Security BearerAuth
// @Param id path int true "刊登ID"
// @Success 200 {object} dto.PublicationInfo "刊登详情"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Router /api/publications/{id} [get]
func (c *PublicationController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	resp, err := c.pubSvc.Get(ctx.Request.Context(), id, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// GetByMeliItemID 按远端 item ID 查本地刊登
// @Summary 按 Meli item ID 获取刊登
// @Tags Publication (刊登管理)
// @Produce json
// @Security BearerAuth
// @Param meliItemId path string true "Meli item ID，如 MLA123456789"
// @Success 200 {object} dto.PublicationInfo "刊登详情"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Router /api/publications/meli/{meliItemId} [get]
func (c *PublicationController) GetByMeliItemID(ctx *gin.Context) {
	meliItemID := ctx.Param("meliItemId")

	resp, err := c.pubSvc.GetByMeliItemID(ctx.Request.Context(), meliItemID, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if resp == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "该 Meli item 尚未导入本地"})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Update 更新刊登
// @Summary 更新刊登 (已绑定 Meli item 时同步推远端)
// @Tags Publication (刊登管理)
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "刊登ID"
// @Param request body dto.UpdatePublicationRequest true "更新字段"
// @Success 200 {object} dto.PublicationInfo "更新后的刊登"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Router /api/publications/{id} [patch]
func (c *PublicationController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req dto.UpdatePublicationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.pubSvc.Update(ctx.Request.Context(), id, &req, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Delete 删除刊登
// @Summary 删除本地刊登 (软删除，不触达 Meli)
// @Tags Publication (刊登管理)
// @Security BearerAuth
// @Param id path int true "刊登ID"
// @Success 204 "删除成功"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Router /api/publications/{id} [delete]
func (c *PublicationController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := c.pubSvc.Delete(ctx.Request.Context(), id, middleware.GetOwnerID(ctx)); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Pause 暂停刊登
// @Summary 暂停刊登 (远端 best-effort，本地必定标记)
// @Tags Publication (刊登管理)
// @Produce json
// @Security BearerAuth
// @Param id path int true "刊登ID"
// @Success 200 {object} dto.PauseResponse "暂停结果"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Router /api/publications/{id}/pause [post]
func (c *PublicationController) Pause(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	resp, err := c.pubSvc.Pause(ctx.Request.Context(), id, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Activate 恢复刊登
// @Summary 恢复刊登 (只清本地暂停标记)
// @Tags Publication (刊登管理)
// @Produce json
// @Security BearerAuth
// @Param id path int true "刊登ID"
// @Success 200 {object} dto.PublicationInfo "恢复后的刊登"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Router /api/publications/{id}/activate [post]
func (c *PublicationController) Activate(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	resp, err := c.pubSvc.Activate(ctx.Request.Context(), id, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
