package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/repository"
	"meli_hub_v1/pkg/config"
	"meli_hub_v1/pkg/meli"
)

// newAnalysisTestEnv 假 OpenAI 服务器 + 完整服务栈
func newAnalysisTestEnv(t *testing.T, handler http.HandlerFunc) (*AnalysisService, *PublicationService) {
	t.Helper()

	db := setupTestDB(t)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pubSvc := NewPublicationService(repository.NewPublicationRepository(db))
	// 这里不需要真的 Meli 服务，给个没 Token 的实例占位
	pubSvc.MeliSvc = NewMeliService(repository.NewTokenRepository(db), meli.NewClient(), config.MeliConfig{})

	analysisSvc := NewAnalysisService(
		repository.NewAnalysisRepository(db),
		pubSvc,
		meli.NewClient(),
		config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini"},
	)
	analysisSvc.BaseURL = server.URL

	return analysisSvc, pubSvc
}

func fakeChatCompletion(result dto.AnalysisResult) map[string]interface{} {
	content, _ := json.Marshal(result)
	return map[string]interface{}{
		"model": "gpt-4o-mini-2024-07-18",
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": string(content)}},
		},
		"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 80},
	}
}

func TestAnalyzePublication_CachesResult(t *testing.T) {
	calls := 0
	svc, pubSvc := newAnalysisTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, 200, fakeChatCompletion(dto.AnalysisResult{
			TitleRecommendations: []string{"Agrega la marca al titulo"},
			CommercialRisks:      []string{"Stock bajo"},
		}))
	})

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "Celular", Price: 100, AvailableQuantity: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建刊登失败: %v", err)
	}

	// 首次：打模型
	first, err := svc.AnalyzePublication(context.Background(), info.ID, "owner1", false)
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if first.Cached {
		t.Error("首次分析不应标记缓存")
	}
	if len(first.Result.TitleRecommendations) != 1 {
		t.Errorf("结果解析不对: %+v", first.Result)
	}
	if calls != 1 {
		t.Fatalf("应请求模型 1 次，实际 %d", calls)
	}

	// 二次：命中缓存，不再烧 Token
	second, err := svc.AnalyzePublication(context.Background(), info.ID, "owner1", false)
	if err != nil {
		t.Fatalf("二次分析失败: %v", err)
	}
	if !second.Cached {
		t.Error("二次分析应命中缓存")
	}
	if calls != 1 {
		t.Errorf("缓存命中不应再请求模型，实际 %d 次", calls)
	}

	// force：绕过缓存重新分析
	third, err := svc.AnalyzePublication(context.Background(), info.ID, "owner1", true)
	if err != nil {
		t.Fatalf("强制分析失败: %v", err)
	}
	if third.Cached {
		t.Error("强制分析不应标记缓存")
	}
	if calls != 2 {
		t.Errorf("强制分析应再请求一次模型，实际 %d 次", calls)
	}
}

func TestAnalyzePublication_NotFound(t *testing.T) {
	svc, _ := newAnalysisTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("刊登不存在时不应请求模型")
	})

	_, err := svc.AnalyzePublication(context.Background(), 404404, "owner1", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，得到 %v", err)
	}
}

func TestAnalyzePublication_QuotaExceeded(t *testing.T) {
	svc, pubSvc := newAnalysisTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 429, map[string]interface{}{
			"error": map[string]string{"message": "quota exceeded", "code": "insufficient_quota"},
		})
	})

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "x", Price: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建刊登失败: %v", err)
	}

	_, err = svc.AnalyzePublication(context.Background(), info.ID, "owner1", false)
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("额度用尽应返回 ErrServiceUnavailable，得到 %v", err)
	}
}

func TestAnalyzePublication_NoAPIKey(t *testing.T) {
	svc, pubSvc := newAnalysisTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("没配 Key 不应请求模型")
	})
	svc.Cfg.APIKey = ""

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "x", Price: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建刊登失败: %v", err)
	}

	_, err = svc.AnalyzePublication(context.Background(), info.ID, "owner1", false)
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("没配 Key 应返回 ErrServiceUnavailable，得到 %v", err)
	}
}

func TestAnalysisHistory(t *testing.T) {
	svc, pubSvc := newAnalysisTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, fakeChatCompletion(dto.AnalysisResult{DescriptionIssues: []string{"muy corta"}}))
	})

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "x", Price: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建刊登失败: %v", err)
	}

	if _, err := svc.AnalyzePublication(context.Background(), info.ID, "owner1", false); err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if _, err := svc.AnalyzePublication(context.Background(), info.ID, "owner1", true); err != nil {
		t.Fatalf("强制分析失败: %v", err)
	}

	history, err := svc.History(context.Background(), info.ID, "owner1")
	if err != nil {
		t.Fatalf("取历史失败: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("应有 2 条历史记录，实际 %d", len(history))
	}
	for _, h := range history {
		if h.CreatedAt.IsZero() {
			t.Errorf("历史记录应带生成时间: %+v", h)
		}
	}
	// 历史接口不带缓存标记，序列化结果里不应出现 cached 字段
	raw, err := json.Marshal(history[0])
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	if strings.Contains(string(raw), `"cached"`) {
		t.Errorf("历史条目不应携带 cached 字段: %s", raw)
	}
}
