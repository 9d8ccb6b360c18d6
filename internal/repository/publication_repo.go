package repository

import (
	"context"

	"gorm.io/gorm"

	"meli_hub_v1/internal/model"
)

// ==================== 接口定义 ====================

// PublicationRepository 刊登仓储接口
type PublicationRepository interface {
	Create(ctx context.Context, pub *model.Publication) error
	GetByID(ctx context.Context, id int64) (*model.Publication, error)
	GetByMeliItemID(ctx context.Context, meliItemID string) (*model.Publication, error)
	Update(ctx context.Context, pub *model.Publication) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error

	// 列表查询
	List(ctx context.Context, filter PublicationFilter) ([]model.Publication, int64, error)

	// 描述 (单独接口单独存)
	SaveDescription(ctx context.Context, desc *model.PublicationDescription) error
}

// ==================== 过滤条件 ====================

// PublicationFilter 刊登列表过滤条件
type PublicationFilter struct {
	OwnerID    string
	Status     string // 空表示不筛选
	CategoryID string
	Search     string // 标题模糊搜索
	Page       int
	PageSize   int
}

// ==================== 仓储实现 ====================

type publicationRepo struct {
	db *gorm.DB
}

// NewPublicationRepository 创建刊登仓储
func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepo{db: db}
}

func (r *publicationRepo) Create(ctx context.Context, pub *model.Publication) error {
	return r.db.WithContext(ctx).Create(pub).Error
}

func (r *publicationRepo) GetByID(ctx context.Context, id int64) (*model.Publication, error) {
	var pub model.Publication
	err := r.db.WithContext(ctx).
		Preload("Description").
		First(&pub, id).Error
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *publicationRepo) GetByMeliItemID(ctx context.Context, meliItemID string) (*model.Publication, error) {
	var pub model.Publication
	err := r.db.WithContext(ctx).
		Preload("Description").
		Where("meli_item_id = ?", meliItemID).
		First(&pub).Error
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *publicationRepo) Update(ctx context.Context, pub *model.Publication) error {
	return r.db.WithContext(ctx).Save(pub).Error
}

func (r *publicationRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Publication{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *publicationRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Publication{}, id).Error
}

func (r *publicationRepo) List(ctx context.Context, filter PublicationFilter) ([]model.Publication, int64, error) {
	var (
		pubs  []model.Publication
		total int64
	)

	query := r.db.WithContext(ctx).Model(&model.Publication{})

	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Search != "" {
		query = query.Where("title LIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页默认值
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&pubs).Error
	if err != nil {
		return nil, 0, err
	}

	return pubs, total, nil
}

func (r *publicationRepo) SaveDescription(ctx context.Context, desc *model.PublicationDescription) error {
	// 一个刊登只有一份描述，存在则覆盖
	var existing model.PublicationDescription
	err := r.db.WithContext(ctx).
		Where("publication_id = ?", desc.PublicationID).
		First(&existing).Error
	if err == nil {
		existing.PlainText = desc.PlainText
		return r.db.WithContext(ctx).Save(&existing).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.db.WithContext(ctx).Create(desc).Error
}
