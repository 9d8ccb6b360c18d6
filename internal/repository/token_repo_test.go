package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"meli_hub_v1/internal/model"
)

func setupTokenRepo(t *testing.T) TokenRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.MeliToken{}); err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}
	return NewTokenRepository(db)
}

func TestGetLatestByOwner(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	// 同一 owner 两行历史，后插入的是最新
	old := &model.MeliToken{
		OwnerID:     "1",
		AccessToken: "old-token",
		ExpiresAt:   time.Now().Add(-time.Hour),
		Status:      model.TokenStatusExpired,
	}
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("插入旧凭证失败: %v", err)
	}
	newest := &model.MeliToken{
		OwnerID:     "1",
		AccessToken: "new-token",
		ExpiresAt:   time.Now().Add(6 * time.Hour),
		Status:      model.TokenStatusValid,
	}
	if err := repo.Create(ctx, newest); err != nil {
		t.Fatalf("插入新凭证失败: %v", err)
	}

	got, err := repo.GetLatestByOwner(ctx, "1")
	if err != nil {
		t.Fatalf("查询最新凭证失败: %v", err)
	}
	if got.AccessToken != "new-token" {
		t.Errorf("期望最新凭证 new-token，实际 %s", got.AccessToken)
	}

	if _, err := repo.GetLatestByOwner(ctx, "nobody"); err != gorm.ErrRecordNotFound {
		t.Errorf("期望 ErrRecordNotFound，实际 %v", err)
	}
}

func TestFindExpiring(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()
	deadline := time.Now().Add(30 * time.Minute)

	seed := []*model.MeliToken{
		// owner 1: 老行已过期 + 新行也快过期，只应保活新行
		{OwnerID: "1", AccessToken: "a1-old", RefreshToken: "r1-old", ExpiresAt: time.Now().Add(-time.Hour), Status: model.TokenStatusValid},
		{OwnerID: "1", AccessToken: "a1", RefreshToken: "r1", ExpiresAt: time.Now().Add(10 * time.Minute), Status: model.TokenStatusValid},
		// owner 2: 还很新鲜，不需要保活
		{OwnerID: "2", AccessToken: "a2", RefreshToken: "r2", ExpiresAt: time.Now().Add(5 * time.Hour), Status: model.TokenStatusValid},
		// owner 3: 快过期但没有 refresh_token，刷不了
		{OwnerID: "3", AccessToken: "a3", RefreshToken: "", ExpiresAt: time.Now().Add(time.Minute), Status: model.TokenStatusValid},
		// owner 4: 已标记失效，刷新被拒过
		{OwnerID: "4", AccessToken: "a4", RefreshToken: "r4", ExpiresAt: time.Now().Add(time.Minute), Status: model.TokenStatusInvalid},
	}
	for _, tok := range seed {
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("插入凭证失败: %v", err)
		}
	}

	expiring, err := repo.FindExpiring(ctx, deadline)
	if err != nil {
		t.Fatalf("查询待刷新凭证失败: %v", err)
	}
	if len(expiring) != 1 {
		t.Fatalf("期望 1 条待刷新凭证，实际 %d 条", len(expiring))
	}
	if expiring[0].AccessToken != "a1" {
		t.Errorf("期望保活 owner 1 的最新凭证，实际 %s", expiring[0].AccessToken)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := setupTokenRepo(t)
	ctx := context.Background()

	tok := &model.MeliToken{
		OwnerID:     "1",
		AccessToken: "a1",
		ExpiresAt:   time.Now().Add(time.Hour),
		Status:      model.TokenStatusValid,
	}
	if err := repo.Create(ctx, tok); err != nil {
		t.Fatalf("插入凭证失败: %v", err)
	}

	if err := repo.UpdateStatus(ctx, tok.ID, model.TokenStatusInvalid); err != nil {
		t.Fatalf("更新状态失败: %v", err)
	}

	got, err := repo.GetLatestByOwner(ctx, "1")
	if err != nil {
		t.Fatalf("查询凭证失败: %v", err)
	}
	if got.Status != model.TokenStatusInvalid {
		t.Errorf("期望状态 %s，实际 %s", model.TokenStatusInvalid, got.Status)
	}
}
