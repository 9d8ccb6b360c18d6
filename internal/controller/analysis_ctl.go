package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/middleware"
	"meli_hub_v1/internal/service"
)

type AnalysisController struct {
	analysisSvc *service.AnalysisService
}

func NewAnalysisController(analysisSvc *service.AnalysisService) *AnalysisController {
	return &AnalysisController{
		analysisSvc: analysisSvc,
	}
}

// Analyze 分析刊登
// @Summary LLM 分析刊登质量
// @Description 默认返回最近一次缓存结果，force=true 时重新分析
// @Tags Analysis (刊登分析)
// @Produce json
// @Security BearerAuth
// @Param id path int true "刊登ID"
// @Param force query bool false "跳过缓存重新分析"
// @Success 200 {object} dto.AnalysisResponse "分析结果"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Failure 503 {object} map[string]string "OpenAI 不可用或未配置"
// @Router /api/publications/{id}/analysis [post]
func (c *AnalysisController) Analyze(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var query dto.AnalyzeQuery
	_ = ctx.ShouldBindQuery(&query)

	ownerID := middleware.GetOwnerID(ctx)
	if query.Force {
		// 强制分析绕过缓存，必然烧 Token，加冷却
		check := middleware.GetLimiter().Check(
			middleware.OwnerSyncKey(ownerID, middleware.SyncTypeAnalysis),
			middleware.GetInterval(middleware.SyncTypeAnalysis),
		)
		if !check.Allowed {
			ctx.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "分析过于频繁，请稍后再试",
				"retry_after": check.RetryAfter.Seconds(),
			})
			return
		}
	}

	resp, err := c.analysisSvc.AnalyzePublication(ctx.Request.Context(), id, ownerID, query.Force)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// History 历史分析记录
// @Summary 刊登的历史分析记录
// @Tags Analysis (刊登分析)
// @Produce json
// @Security BearerAuth
// @Param id path int true "刊登ID"
// @Success 200 {array} dto.AnalysisHistoryItem "历史记录"
// @Failure 404 {object} map[string]string "刊登不存在"
// @Router /api/publications/{id}/analysis [get]
func (c *AnalysisController) History(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	resp, err := c.analysisSvc.History(ctx.Request.Context(), id, middleware.GetOwnerID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
