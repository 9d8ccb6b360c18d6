package dto

import "time"

// ==================== 刊登 CRUD ====================

// CreatePublicationRequest 手工录入本地刊登 (不触达远端)
type CreatePublicationRequest struct {
	MeliItemID        string  `json:"meli_item_id" binding:"required"`
	Title             string  `json:"title" binding:"required"`
	Price             float64 `json:"price" binding:"required,gt=0"`
	Status            string  `json:"status"`
	AvailableQuantity int     `json:"available_quantity"`
	SoldQuantity      int     `json:"sold_quantity"`
	CategoryID        string  `json:"category_id"`
	Description       string  `json:"description"`
}

// UpdatePublicationRequest 更新刊登 (指针字段区分"没传"和"传了零值")
type UpdatePublicationRequest struct {
	Title             *string  `json:"title"`
	Price             *float64 `json:"price" binding:"omitempty,gt=0"`
	AvailableQuantity *int     `json:"available_quantity" binding:"omitempty,gte=0"`
	Status            *string  `json:"status"`
	Description       *string  `json:"description"`
}

// PublishMeliRequest 从本系统直接向 Meli 发布新商品
type PublishMeliRequest struct {
	Title             string   `json:"title" binding:"required"`
	Price             float64  `json:"price" binding:"required,gt=0"`
	AvailableQuantity int      `json:"available_quantity" binding:"required,gt=0"`
	CategoryID        string   `json:"category_id" binding:"required"`
	Description       string   `json:"description"`
	Pictures          []string `json:"pictures"`
}

// ListPublicationsQuery 刊登列表查询参数
type ListPublicationsQuery struct {
	Status     string `form:"status"`
	CategoryID string `form:"category_id"`
	Search     string `form:"search"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// PublicationInfo 刊登详情响应
type PublicationInfo struct {
	ID                int64     `json:"id"`
	MeliItemID        string    `json:"meli_item_id"`
	Permalink         string    `json:"permalink"`
	Title             string    `json:"title"`
	Price             float64   `json:"price"`
	CurrencyID        string    `json:"currency_id"`
	Status            string    `json:"status"`
	EffectiveStatus   string    `json:"effective_status"`
	AvailableQuantity int       `json:"available_quantity"`
	SoldQuantity      int       `json:"sold_quantity"`
	CategoryID        string    `json:"category_id"`
	Pictures          []string  `json:"pictures,omitempty"`
	IsPausedLocally   bool      `json:"is_paused_locally"`
	Description       string    `json:"description,omitempty"`
	OwnerID           string    `json:"owner_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PublicationListResponse 刊登分页响应
type PublicationListResponse struct {
	List  []PublicationInfo `json:"list"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
}

// PauseResponse 暂停结果
type PauseResponse struct {
	PausedInMeli bool             `json:"paused_in_meli"` // 远端是否也暂停成功
	Publication  *PublicationInfo `json:"publication"`
}
