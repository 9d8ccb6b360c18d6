package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/model"
	"meli_hub_v1/internal/repository"
	"meli_hub_v1/pkg/config"
)

const openAIChatURL = "https://api.openai.com/v1/chat/completions"

// ==================== AnalysisService 刊登质量分析 ====================

// AnalysisService 调 OpenAI 对刊登做质量分析，结果按刊登缓存
type AnalysisService struct {
	AnalysisRepo repository.AnalysisRepository
	PubSvc       *PublicationService

	Client *resty.Client
	Cfg    config.OpenAIConfig

	// 测试时指向 httptest 服务器
	BaseURL string
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(analysisRepo repository.AnalysisRepository, pubSvc *PublicationService, client *resty.Client, cfg config.OpenAIConfig) *AnalysisService {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &AnalysisService{
		AnalysisRepo: analysisRepo,
		PubSvc:       pubSvc,
		Client:       client,
		Cfg:          cfg,
		BaseURL:      openAIChatURL,
	}
}

// ==================== OpenAI 请求/响应结构 ====================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ==================== 分析 ====================

// AnalyzePublication 分析刊登
// force=false 时优先返回最近一次缓存结果，不花 Token
func (s *AnalysisService) AnalyzePublication(ctx context.Context, publicationID int64, ownerID string, force bool) (*dto.AnalysisResponse, error) {
	pub, err := s.PubSvc.Get(ctx, publicationID, ownerID)
	if err != nil {
		return nil, err
	}

	// 1. 查缓存
	if !force {
		cached, err := s.AnalysisRepo.GetLatestByPublication(ctx, publicationID)
		if err == nil {
			var result dto.AnalysisResult
			if jsonErr := json.Unmarshal(cached.Result, &result); jsonErr == nil {
				return &dto.AnalysisResponse{
					PublicationID: publicationID,
					Model:         cached.Model,
					Cached:        true,
					Result:        result,
				}, nil
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if s.Cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY 未配置", ErrServiceUnavailable)
	}

	// 2. 组 prompt
	prompt, err := s.buildPrompt(pub)
	if err != nil {
		return nil, err
	}

	reqBody := chatRequest{
		Model: s.Cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "Eres un experto en optimizacion de listings de e-commerce."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	}
	reqBody.ResponseFormat.Type = "json_object"

	// 3. 调模型
	var chatResp chatResponse
	resp, err := s.Client.R().
		SetContext(ctx).
		SetAuthToken(s.Cfg.APIKey).
		SetBody(reqBody).
		SetResult(&chatResp).
		SetError(&chatResp).
		Post(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求 OpenAI 失败: %v", ErrServiceUnavailable, err)
	}
	if resp.IsError() {
		if resp.StatusCode() == 429 || chatResp.Error.Code == "insufficient_quota" {
			return nil, fmt.Errorf("%w: OpenAI 限流或额度用尽，请检查 billing", ErrServiceUnavailable)
		}
		return nil, fmt.Errorf("%w: OpenAI 返回错误: %s", ErrServiceUnavailable, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: 模型未返回内容", ErrServiceUnavailable)
	}

	// 4. 解析结构化结果
	raw := chatResp.Choices[0].Message.Content
	var result dto.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: 模型返回的 JSON 无法解析: %v", ErrServiceUnavailable, err)
	}

	// 5. 落库缓存
	modelName := chatResp.Model
	if modelName == "" {
		modelName = s.Cfg.Model
	}
	record := &model.PublicationAnalysis{
		PublicationID:    publicationID,
		Model:            modelName,
		Result:           datatypes.JSON(raw),
		PromptTokens:     chatResp.Usage.PromptTokens,
		CompletionTokens: chatResp.Usage.CompletionTokens,
	}
	if err := s.AnalysisRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &dto.AnalysisResponse{
		PublicationID: publicationID,
		Model:         modelName,
		Cached:        false,
		Result:        result,
	}, nil
}

// buildPrompt 把刊登数据和派生指标拼进 prompt
func (s *AnalysisService) buildPrompt(pub *dto.PublicationInfo) (string, error) {
	// 派生运营指标
	stockStatus := "healthy"
	if pub.AvailableQuantity <= 2 {
		stockStatus = "low"
	} else if pub.AvailableQuantity <= 5 {
		stockStatus = "medium"
	}

	var soldToStockRatio interface{}
	if pub.AvailableQuantity > 0 {
		soldToStockRatio = float64(int(float64(pub.SoldQuantity)/float64(pub.AvailableQuantity)*100)) / 100
	}

	payload := map[string]interface{}{
		"id":                pub.ID,
		"title":             pub.Title,
		"price":             pub.Price,
		"status":            pub.Status,
		"availableQuantity": pub.AvailableQuantity,
		"soldQuantity":      pub.SoldQuantity,
		"categoryId":        pub.CategoryID,
		"metrics": map[string]interface{}{
			"stockStatus":      stockStatus,
			"soldToStockRatio": soldToStockRatio,
		},
		"description": pub.Description,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}

	return "Analiza la publicacion de Mercado Libre y devuelve recomendaciones claras en espanol.\n" +
		"Responde solo en JSON con las claves: titleRecommendations, descriptionIssues, conversionOpportunities, commercialRisks.\n" +
		"No agregues texto fuera del JSON.\n" +
		"Datos de la publicacion:\n" +
		string(data), nil
}

// History 刊登的历史分析记录
func (s *AnalysisService) History(ctx context.Context, publicationID int64, ownerID string) ([]dto.AnalysisHistoryItem, error) {
	// 先确认刊登存在且归属正确
	if _, err := s.PubSvc.Get(ctx, publicationID, ownerID); err != nil {
		return nil, err
	}

	records, err := s.AnalysisRepo.ListByPublication(ctx, publicationID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AnalysisHistoryItem, 0, len(records))
	for _, r := range records {
		var result dto.AnalysisResult
		_ = json.Unmarshal(r.Result, &result)
		out = append(out, dto.AnalysisHistoryItem{
			PublicationID: publicationID,
			Model:         r.Model,
			Result:        result,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}
