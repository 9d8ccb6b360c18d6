package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"meli_hub_v1/internal/controller"
	"meli_hub_v1/internal/middleware"
	"meli_hub_v1/internal/model"
	"meli_hub_v1/internal/repository"
	"meli_hub_v1/internal/router"
	"meli_hub_v1/internal/service"
	"meli_hub_v1/internal/task"
	"meli_hub_v1/pkg/config"
	"meli_hub_v1/pkg/database"
	"meli_hub_v1/pkg/meli"
)

// @title Meli Hub API
// @version 1.0
// @description Mercado Libre 刊登管理后台
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 加载配置
	cfg := config.Load()

	// 2. JWT 密钥跟配置走
	jwtCfg := middleware.DefaultJWTConfig()
	jwtCfg.SecretKey = cfg.JWTSecret
	middleware.SetJWTConfig(jwtCfg)

	// 3. 初始化数据库
	db := initDatabase(cfg)

	// 4. 初始化依赖
	deps := initDependencies(db, cfg)

	// 5. 启动定时任务
	initTasks(deps)

	// 6. 初始化路由
	r := gin.Default()
	router.InitRoutes(r,
		deps.Controllers.User,
		deps.Controllers.Meli,
		deps.Controllers.Publication,
		deps.Controllers.Analysis,
	)

	// 7. 启动服务
	startServer(r, cfg.ServerPort)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	User        repository.UserRepository
	Token       repository.TokenRepository
	Publication repository.PublicationRepository
	Analysis    repository.AnalysisRepository
}

// Services 服务集合
type Services struct {
	User        *service.UserService
	Meli        *service.MeliService
	Publication *service.PublicationService
	Analysis    *service.AnalysisService
}

// Controllers 控制器集合
type Controllers struct {
	User        *controller.UserController
	Meli        *controller.MeliController
	Publication *controller.PublicationController
	Analysis    *controller.AnalysisController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) *gorm.DB {
	return database.InitDB(cfg.DatabaseDSN,
		&model.SysUser{},
		&model.MeliToken{},
		&model.Publication{},
		&model.PublicationDescription{},
		&model.PublicationAnalysis{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB, cfg *config.Config) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		User:        repository.NewUserRepository(db),
		Token:       repository.NewTokenRepository(db),
		Publication: repository.NewPublicationRepository(db),
		Analysis:    repository.NewAnalysisRepository(db),
	}

	// -------- 业务服务 --------
	client := meli.NewClient()

	services := &Services{}
	services.User = service.NewUserService(repos.User)
	services.Meli = service.NewMeliService(repos.Token, client, cfg.Meli)
	services.Publication = service.NewPublicationService(repos.Publication)
	services.Analysis = service.NewAnalysisService(repos.Analysis, services.Publication, client, cfg.OpenAI)

	// Meli 服务与刊登服务互相调用：导入/发布要落库，落库层更新要反推远端
	services.Meli.PubSvc = services.Publication
	services.Publication.MeliSvc = services.Meli

	// -------- Controller 层 --------
	controllers := &Controllers{
		User:        controller.NewUserController(services.User),
		Meli:        controller.NewMeliController(services.Meli, cfg.FrontendURL),
		Publication: controller.NewPublicationController(services.Publication),
		Analysis:    controller.NewAnalysisController(services.Analysis),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// Token 保活
	tokenTask := task.NewTokenTask(deps.Repos.Token, deps.Services.Meli)
	tokenTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, port string) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}
