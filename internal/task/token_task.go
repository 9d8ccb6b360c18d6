package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"meli_hub_v1/internal/model"
	"meli_hub_v1/internal/repository"
	"meli_hub_v1/internal/service"
)

// TokenTask Meli Token 保活任务
// Meli access_token 6 小时过期，提前批量刷新，别让白天的同步请求撞上 401
type TokenTask struct {
	TokenRepo repository.TokenRepository
	MeliSvc   *service.MeliService
	Cron      *cron.Cron

	// 控制并发刷新的数量，防止被 Meli 限流
	concurrencyLimit int
	sleepTime        time.Duration
	// 过期前多久开始保活
	renewAhead time.Duration
}

func NewTokenTask(tokenRepo repository.TokenRepository, meliSvc *service.MeliService) *TokenTask {
	return &TokenTask{
		TokenRepo:        tokenRepo,
		MeliSvc:          meliSvc,
		Cron:             cron.New(cron.WithSeconds()), // 支持秒级控制
		concurrencyLimit: 10,                           // Token 接口敏感，并发压低
		sleepTime:        50 * time.Millisecond,        // 每个协程启动间隔，平滑波峰
		renewAhead:       30 * time.Minute,
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次 Token 检查...")
		t.refreshJob(ctx)
	}()

	// 定时策略
	_, err := t.Cron.AddFunc("0 0/20 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.refreshJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动 Token 定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("Token 保活任务已启动 (每20分钟检查一次)")
}

// Stop 停止定时任务
func (t *TokenTask) Stop() {
	t.Cron.Stop()
}

// refreshJob 自动刷新逻辑
func (t *TokenTask) refreshJob(ctx context.Context) {
	tokens, err := t.TokenRepo.FindExpiring(ctx, time.Now().Add(t.renewAhead))
	if err != nil {
		log.Printf("[Cron] Token 过期状态查询失败: %v", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	// 1. 信号量通道，容量即并发上限
	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[Cron] 开始处理 %d 个 Meli Token 的保活刷新，并发上限: %d", len(tokens), t.concurrencyLimit)

	for _, token := range tokens {
		// 上下文取消 (超时) 则停止，但要等在飞的刷新收尾
		select {
		case <-ctx.Done():
			log.Println("[Cron] 任务超时停止")
			wg.Wait()
			return
		default:
		}

		// 2. 获取信号量 (满则阻塞，起限流作用)
		sem <- struct{}{}
		wg.Add(1)

		// 3. 平滑波峰
		time.Sleep(t.sleepTime)

		currentToken := token

		go func(tok model.MeliToken) {
			defer wg.Done()
			defer func() { <-sem }() // 任务结束释放信号量

			if err := t.MeliSvc.RefreshToken(ctx, &tok); err != nil {
				// 日志仅记录，不中断其他协程
				log.Printf("[Cron] owner [%s] Token 刷新失败: %v", tok.OwnerID, err)
			}
		}(currentToken)
	}

	// 4. 等待所有 Goroutine 完成
	wg.Wait()
	log.Println("[Cron] 本轮 Token 保活任务完成")
}
