package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"meli_hub_v1/internal/model"
)

// ==================== 接口定义 ====================

// TokenRepository Meli OAuth 凭证仓储接口
type TokenRepository interface {
	Create(ctx context.Context, token *model.MeliToken) error
	// GetLatestByOwner 取该 owner 最新一行凭证 (历史行保留，永远按 created_at 倒序取头)
	GetLatestByOwner(ctx context.Context, ownerID string) (*model.MeliToken, error)
	Update(ctx context.Context, token *model.MeliToken) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	// FindExpiring 找出 deadline 前过期且还能刷新的凭证 (定时保活用)
	FindExpiring(ctx context.Context, deadline time.Time) ([]model.MeliToken, error)
}

// ==================== 仓储实现 ====================

type tokenRepo struct {
	db *gorm.DB
}

// NewTokenRepository 创建凭证仓储
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) Create(ctx context.Context, token *model.MeliToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepo) GetLatestByOwner(ctx context.Context, ownerID string) (*model.MeliToken, error) {
	var token model.MeliToken
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepo) Update(ctx context.Context, token *model.MeliToken) error {
	return r.db.WithContext(ctx).Save(token).Error
}

func (r *tokenRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.MeliToken{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *tokenRepo) FindExpiring(ctx context.Context, deadline time.Time) ([]model.MeliToken, error) {
	var tokens []model.MeliToken
	// 每个 owner 只保活最新一行，老的历史行不管
	sub := r.db.Model(&model.MeliToken{}).
		Select("MAX(id)").
		Group("owner_id")
	err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Where("expires_at < ?", deadline).
		Where("status = ?", model.TokenStatusValid).
		Where("refresh_token <> ''").
		Find(&tokens).Error
	return tokens, err
}
