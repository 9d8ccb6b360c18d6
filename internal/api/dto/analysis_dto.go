package dto

import "time"

// AnalyzeQuery 分析请求参数
type AnalyzeQuery struct {
	Force bool `form:"force"` // true 时跳过缓存重新分析
}

// AnalysisResult LLM 返回的结构化建议
type AnalysisResult struct {
	TitleRecommendations    []string `json:"titleRecommendations"`
	DescriptionIssues       []string `json:"descriptionIssues"`
	ConversionOpportunities []string `json:"conversionOpportunities"`
	CommercialRisks         []string `json:"commercialRisks"`
}

// AnalysisResponse 分析响应 (带缓存标记)
type AnalysisResponse struct {
	PublicationID int64          `json:"publication_id"`
	Model         string         `json:"model"`
	Cached        bool           `json:"cached"`
	Result        AnalysisResult `json:"result"`
}

// AnalysisHistoryItem 历史分析记录条目
type AnalysisHistoryItem struct {
	PublicationID int64          `json:"publication_id"`
	Model         string         `json:"model"`
	Result        AnalysisResult `json:"result"`
	CreatedAt     time.Time      `json:"created_at"`
}
