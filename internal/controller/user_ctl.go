package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/middleware"
	"meli_hub_v1/internal/service"
)

type UserController struct {
	userSvc *service.UserService
}

func NewUserController(userSvc *service.UserService) *UserController {
	return &UserController{
		userSvc: userSvc,
	}
}

// Login 用户登录
// @Summary 用户登录
// @Description 用户名密码登录，返回 Access/Refresh Token 对
// @Tags Auth (认证)
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录参数"
// @Success 200 {object} dto.LoginResponse "登录成功"
// @Failure 401 {object} map[string]string "用户名或密码错误"
// @Router /api/auth/login [post]
func (c *UserController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.userSvc.Login(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Register 用户注册
// @Summary 用户注册
// @Description 注册新的后台操作员账号
// @Tags Auth (认证)
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册参数"
// @Success 201 {object} dto.UserInfo "注册成功"
// @Failure 409 {object} map[string]string "用户名已存在"
// @Router /api/auth/register [post]
func (c *UserController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.userSvc.Register(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// Refresh 刷新 Token
// @Summary 刷新 Token
// @Description 用 Refresh Token 换新的 Token 对
// @Tags Auth (认证)
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "刷新参数"
// @Success 200 {object} dto.RefreshTokenResponse "刷新成功"
// @Failure 401 {object} map[string]string "Token 无效"
// @Router /api/auth/refresh [post]
func (c *UserController) Refresh(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.userSvc.RefreshToken(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Me 当前用户信息
// @Summary 当前用户信息
// @Tags Auth (认证)
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserInfo "用户信息"
// @Failure 401 {object} map[string]string "未登录"
// @Router /api/auth/me [get]
func (c *UserController) Me(ctx *gin.Context) {
	resp, err := c.userSvc.GetProfile(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
