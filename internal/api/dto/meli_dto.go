package dto

import "time"

// ==================== Meli 授权与同步 ====================

// AuthURLResponse 授权跳转地址
type AuthURLResponse struct {
	URL string `json:"url"`
}

// MeliStatusResponse 授权状态
type MeliStatusResponse struct {
	Connected bool       `json:"connected"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MeliProfileResponse 卖家信息
type MeliProfileResponse struct {
	ID        int64      `json:"id"`
	Nickname  string     `json:"nickname"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ImportItemRequest 导入单个刊登 (ID 或整条 URL 都接受)
type ImportItemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// SyncRequest 批量拉取在售刊登
type SyncRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SyncResponse 同步结果统计
type SyncResponse struct {
	Total    int      `json:"total"`    // 远端在售总数
	Imported int      `json:"imported"` // 本次落库/更新条数
	Failed   int      `json:"failed"`   // 失败条数
	Errors   []string `json:"errors,omitempty"`
}

// CategoryInfo 类目信息
type CategoryInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
