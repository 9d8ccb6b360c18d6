package repository

import (
	"context"

	"gorm.io/gorm"

	"meli_hub_v1/internal/model"
)

// AnalysisRepository 刊登分析结果仓储接口
type AnalysisRepository interface {
	Create(ctx context.Context, a *model.PublicationAnalysis) error
	// GetLatestByPublication 取刊登最近一次分析 (缓存命中)
	GetLatestByPublication(ctx context.Context, publicationID int64) (*model.PublicationAnalysis, error)
	ListByPublication(ctx context.Context, publicationID int64) ([]model.PublicationAnalysis, error)
}

type analysisRepo struct {
	db *gorm.DB
}

// NewAnalysisRepository 创建分析仓储
func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepo{db: db}
}

func (r *analysisRepo) Create(ctx context.Context, a *model.PublicationAnalysis) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *analysisRepo) GetLatestByPublication(ctx context.Context, publicationID int64) (*model.PublicationAnalysis, error) {
	var a model.PublicationAnalysis
	err := r.db.WithContext(ctx).
		Where("publication_id = ?", publicationID).
		Order("created_at DESC, id DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *analysisRepo) ListByPublication(ctx context.Context, publicationID int64) ([]model.PublicationAnalysis, error) {
	var list []model.PublicationAnalysis
	err := r.db.WithContext(ctx).
		Where("publication_id = ?", publicationID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}
