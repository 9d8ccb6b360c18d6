package service

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"meli_hub_v1/internal/model"
)

// ==================== 测试辅助 ====================

// setupTestDB 内存 sqlite，TranslateError 打开保证唯一键冲突
// 在测试里也能拿到 gorm.ErrDuplicatedKey
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(
		&model.SysUser{},
		&model.MeliToken{},
		&model.Publication{},
		&model.PublicationDescription{},
		&model.PublicationAnalysis{},
	); err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}
	return db
}
