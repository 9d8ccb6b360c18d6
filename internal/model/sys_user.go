package model

// SysUser 系统用户 (后台操作员)
type SysUser struct {
	BaseModel
	Username string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Password string `gorm:"size:255;not null" json:"-"` // 哈希密码
	Email    string `gorm:"size:100" json:"email"`

	// 系统级角色: admin (管理员), user (普通操作员)
	Role string `gorm:"size:20;default:'user'" json:"role"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

func (SysUser) TableName() string {
	return "sys_users"
}
