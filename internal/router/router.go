package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"meli_hub_v1/internal/controller"
	"meli_hub_v1/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	userCtl *controller.UserController,
	meliCtl *controller.MeliController,
	pubCtl *controller.PublicationController,
	analysisCtl *controller.AnalysisController) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. API 路由组
	api := r.Group("/api")
	{
		// auth 鉴权组
		auth := api.Group("/auth")
		{
			auth.POST("/login", userCtl.Login)
			auth.POST("/register", userCtl.Register)
			auth.POST("/refresh", userCtl.Refresh)
			auth.GET("/me", middleware.JWTAuth(), userCtl.Me)
		}

		// meli 平台对接
		meli := api.Group("/meli")
		{
			// 回调是 Meli 服务器回跳，带不了我们的 JWT，靠 state 校验
			meli.GET("/callback", meliCtl.Callback)

			authed := meli.Group("", middleware.JWTAuth())
			{
				authed.GET("/auth", meliCtl.Auth)
				authed.GET("/auth-url", meliCtl.AuthURL)
				authed.GET("/status", meliCtl.Status)
				authed.GET("/me", meliCtl.Me)
				authed.GET("/my-items", meliCtl.MyItems)
				authed.GET("/import/:itemId", meliCtl.Import)
				authed.POST("/sync", meliCtl.Sync)
				authed.GET("/categories", meliCtl.Categories)
			}
		}

		// publications 刊登管理 (全部要登录)
		pubs := api.Group("/publications", middleware.JWTAuth())
		{
			pubs.POST("", pubCtl.Create)
			pubs.POST("/meli", pubCtl.Publish)
			pubs.GET("", pubCtl.List)
			pubs.GET("/:id", pubCtl.Get)
			pubs.GET("/meli/:meliItemId", pubCtl.GetByMeliItemID)
			pubs.PATCH("/:id", pubCtl.Update)
			pubs.DELETE("/:id", pubCtl.Delete)
			pubs.POST("/:id/pause", pubCtl.Pause)
			pubs.POST("/:id/activate", pubCtl.Activate)

			// 刊登分析挂在刊登资源下
			pubs.POST("/:id/analysis", analysisCtl.Analyze)
			pubs.GET("/:id/analysis", analysisCtl.History)
		}
	}
}
