package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Publication 远端状态常量 (与 Meli item.status 对齐)
const (
	PubStatusActive   = "active"
	PubStatusPaused   = "paused"
	PubStatusClosed   = "closed"
	PubStatusUnderRev = "under_review"
)

// Publication 本地刊登档案
// 远端状态 (Status) 与本地暂停标记 (IsPausedLocally) 是两个独立维度：
// 同步远端数据永远不覆盖本地标记
type Publication struct {
	BaseModel
	OwnerID string `gorm:"size:64;index;not null;default:'default'" json:"owner_id"`

	// 核心身份
	MeliItemID string `gorm:"size:30;uniqueIndex;not null" json:"meli_item_id"` // 形如 MLA123456789
	SiteID     string `gorm:"size:10;default:'MLA'" json:"site_id"`

	// 商品主体
	Title             string  `gorm:"size:255" json:"title"`
	Price             float64 `gorm:"type:decimal(14,2);default:0" json:"price"`
	CurrencyID        string  `gorm:"size:10;default:'ARS'" json:"currency_id"`
	CategoryID        string  `gorm:"size:30;index" json:"category_id"`
	AvailableQuantity int     `gorm:"default:0" json:"available_quantity"`
	SoldQuantity      int     `gorm:"default:0" json:"sold_quantity"`
	Permalink         string  `gorm:"size:512" json:"permalink"`

	// 图片地址列表
	Pictures pq.StringArray `gorm:"type:text[]" json:"pictures"`

	// 状态
	Status          string `gorm:"size:30;index;default:'active'" json:"status"` // 远端状态
	IsPausedLocally bool   `gorm:"default:false" json:"is_paused_locally"`       // 本地暂停标记

	// 远端原始快照 (jsonb)，排查同步问题用
	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`

	// 同步状态
	MeliSyncedAt *time.Time `gorm:"comment:最后同步时间" json:"meli_synced_at"`

	// 关联
	Description *PublicationDescription `gorm:"foreignKey:PublicationID" json:"description,omitempty"`
	Analyses    []PublicationAnalysis   `gorm:"foreignKey:PublicationID" json:"-"`
}

func (Publication) TableName() string {
	return "publications"
}

// EffectiveStatus 对外展示状态：本地暂停优先于远端状态
func (p *Publication) EffectiveStatus() string {
	if p.IsPausedLocally {
		return PubStatusPaused
	}
	return p.Status
}

// PublicationDescription 刊登描述 (Meli 单独接口返回，单独建表)
type PublicationDescription struct {
	BaseModel
	PublicationID int64  `gorm:"uniqueIndex;not null" json:"publication_id"`
	PlainText     string `gorm:"type:text" json:"plain_text"`
}

func (PublicationDescription) TableName() string {
	return "publication_descriptions"
}
