package model

import "time"

// Token 状态常量
const (
	TokenStatusValid   = "valid"        // 有效
	TokenStatusExpired = "expired"      // 已过期
	TokenStatusInvalid = "auth_invalid" // 需重新授权
)

// MeliToken Meli OAuth 凭证
// 同一 owner 可能有多行历史记录，业务上永远取 created_at 最新的一行
type MeliToken struct {
	BaseModel
	OwnerID string `gorm:"size:64;index;not null;default:'default'"` // 凭证归属 (单租户场景固定为 default)

	AccessToken  string `gorm:"type:text;not null" json:"-"`
	RefreshToken string `gorm:"type:text" json:"-"`
	TokenType    string `gorm:"size:20;default:'bearer'"`
	Scope        string `gorm:"size:255"`

	MeliUserID int64     `gorm:"index"` // 对应 Meli 平台的 user_id
	ExpiresAt  time.Time `gorm:"index"` // 绝对过期时间 (入库时由 expires_in 换算)

	Status string `gorm:"size:20;default:'valid'"`
}

func (MeliToken) TableName() string {
	return "meli_tokens"
}

// IsExpiringWithin Token 是否将在 buffer 时间内过期
// 提前刷新，避免拿着临界 Token 去请求被 401
func (t *MeliToken) IsExpiringWithin(buffer time.Duration) bool {
	return time.Now().Add(buffer).After(t.ExpiresAt)
}
