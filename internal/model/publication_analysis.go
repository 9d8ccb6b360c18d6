package model

import "gorm.io/datatypes"

// PublicationAnalysis LLM 刊登质量分析结果
// 按刊登缓存最近一次结果，force 刷新时追加新行
type PublicationAnalysis struct {
	BaseModel
	PublicationID int64  `gorm:"index;not null" json:"publication_id"`
	Model         string `gorm:"size:50" json:"model"` // 产出该结果的模型名

	// 结构化分析结果 (jsonb)：score/strengths/weaknesses/suggestions
	Result datatypes.JSON `gorm:"type:jsonb" json:"result"`

	PromptTokens     int `gorm:"default:0" json:"prompt_tokens"`
	CompletionTokens int `gorm:"default:0" json:"completion_tokens"`
}

func (PublicationAnalysis) TableName() string {
	return "publication_analyses"
}
