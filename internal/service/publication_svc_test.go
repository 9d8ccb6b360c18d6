package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"meli_hub_v1/internal/api/dto"
	"meli_hub_v1/internal/model"
	"meli_hub_v1/pkg/meli"
)

// ==================== Upsert ====================

func TestUpsertFromMeli_CreateThenUpdate(t *testing.T) {
	_, pubSvc, db, _ := newMeliTestEnv(t, http.NewServeMux())

	item := fakeItem("MLA111222333")
	desc := &meli.ItemDescription{PlainText: "primera"}

	first, err := pubSvc.UpsertFromMeli(context.Background(), &item, desc, "owner1")
	if err != nil {
		t.Fatalf("首次落库失败: %v", err)
	}

	// 同一 item 再来一次：更新，不新增
	item.Title = "Titulo actualizado"
	item.Price = 200000
	desc.PlainText = "segunda"
	second, err := pubSvc.UpsertFromMeli(context.Background(), &item, desc, "owner1")
	if err != nil {
		t.Fatalf("二次落库失败: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("同一 item 应复用同一行: %d vs %d", first.ID, second.ID)
	}
	if second.Title != "Titulo actualizado" || second.Price != 200000 {
		t.Errorf("更新字段没生效: %+v", second)
	}
	if second.Description != "segunda" {
		t.Errorf("描述应被覆盖: %q", second.Description)
	}

	var count int64
	db.Model(&model.Publication{}).Count(&count)
	if count != 1 {
		t.Errorf("应只有 1 行刊登，实际 %d", count)
	}
	db.Model(&model.PublicationDescription{}).Count(&count)
	if count != 1 {
		t.Errorf("描述也应只有 1 行，实际 %d", count)
	}
}

func TestUpsertFromMeli_PreservesLocalPause(t *testing.T) {
	_, pubSvc, db, _ := newMeliTestEnv(t, http.NewServeMux())

	item := fakeItem("MLA111222333")
	info, err := pubSvc.UpsertFromMeli(context.Background(), &item, nil, "owner1")
	if err != nil {
		t.Fatalf("落库失败: %v", err)
	}

	// 本地暂停
	if err := db.Model(&model.Publication{}).Where("id = ?", info.ID).
		Update("is_paused_locally", true).Error; err != nil {
		t.Fatalf("打暂停标记失败: %v", err)
	}

	// 远端又同步回来 active，本地标记必须保住
	item.Status = "active"
	updated, err := pubSvc.UpsertFromMeli(context.Background(), &item, nil, "owner1")
	if err != nil {
		t.Fatalf("二次落库失败: %v", err)
	}
	if !updated.IsPausedLocally {
		t.Error("远端同步不应覆盖本地暂停标记")
	}
	if updated.EffectiveStatus != model.PubStatusPaused {
		t.Errorf("本地暂停时展示状态应为 paused，实际 %s", updated.EffectiveStatus)
	}
}

// ==================== 本地 CRUD ====================

func TestCreate_DuplicateMeliItemID(t *testing.T) {
	_, pubSvc, _, _ := newMeliTestEnv(t, http.NewServeMux())

	req := &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333",
		Title:      "local",
		Price:      10,
	}
	if _, err := pubSvc.Create(context.Background(), req, "owner1"); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	_, err := pubSvc.Create(context.Background(), req, "owner1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("重复 meli_item_id 应返回 ErrConflict，得到 %v", err)
	}
}

func TestGet_OwnerScoping(t *testing.T) {
	_, pubSvc, _, _ := newMeliTestEnv(t, http.NewServeMux())

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333",
		Title:      "mia",
		Price:      10,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 归属人能取到
	if _, err := pubSvc.Get(context.Background(), info.ID, "owner1"); err != nil {
		t.Errorf("归属人应能取到: %v", err)
	}

	// 别人按不存在处理
	if _, err := pubSvc.Get(context.Background(), info.ID, "owner2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("他人访问应返回 ErrNotFound，得到 %v", err)
	}
}

func TestMutation_CrossOwnerConflict(t *testing.T) {
	_, pubSvc, _, _ := newMeliTestEnv(t, http.NewServeMux())

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333",
		Title:      "mia",
		Price:      10,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 跨用户改动按冲突处理，和读场景的"按不存在"区分开
	if _, err := pubSvc.Pause(context.Background(), info.ID, "owner2"); !errors.Is(err, ErrConflict) {
		t.Errorf("他人暂停应返回 ErrConflict，得到 %v", err)
	}
	if _, err := pubSvc.Activate(context.Background(), info.ID, "owner2"); !errors.Is(err, ErrConflict) {
		t.Errorf("他人恢复应返回 ErrConflict，得到 %v", err)
	}
	if err := pubSvc.Delete(context.Background(), info.ID, "owner2"); !errors.Is(err, ErrConflict) {
		t.Errorf("他人删除应返回 ErrConflict，得到 %v", err)
	}
}

func TestUpdate_LocalOnly(t *testing.T) {
	_, pubSvc, _, _ := newMeliTestEnv(t, http.NewServeMux())

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333",
		Title:      "antes",
		Price:      10,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 没有有效 Meli Token，更新应只改本地
	title := "despues"
	price := 99.9
	descText := "nueva descripcion"
	updated, err := pubSvc.Update(context.Background(), info.ID, &dto.UpdatePublicationRequest{
		Title:       &title,
		Price:       &price,
		Description: &descText,
	}, "owner1")
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if updated.Title != "despues" || updated.Price != 99.9 {
		t.Errorf("本地更新没生效: %+v", updated)
	}
	if updated.Description != "nueva descripcion" {
		t.Errorf("描述没更新: %q", updated.Description)
	}
}

func TestDelete(t *testing.T) {
	_, pubSvc, _, _ := newMeliTestEnv(t, http.NewServeMux())

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333",
		Title:      "x",
		Price:      1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	if err := pubSvc.Delete(context.Background(), info.ID, "owner1"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if _, err := pubSvc.Get(context.Background(), info.ID, "owner1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("删除后应取不到，得到 %v", err)
	}
}

func TestList_FilterAndPaging(t *testing.T) {
	_, pubSvc, _, _ := newMeliTestEnv(t, http.NewServeMux())

	ctx := context.Background()
	seed := []struct {
		id     string
		title  string
		status string
	}{
		{"MLA100000001", "Celular Samsung", "active"},
		{"MLA100000002", "Celular Motorola", "active"},
		{"MLA100000003", "Heladera", "paused"},
	}
	for _, s := range seed {
		if _, err := pubSvc.Create(ctx, &dto.CreatePublicationRequest{
			MeliItemID: s.id, Title: s.title, Price: 10, Status: s.status,
		}, "owner1"); err != nil {
			t.Fatalf("写入 %s 失败: %v", s.id, err)
		}
	}

	resp, err := pubSvc.List(ctx, &dto.ListPublicationsQuery{Status: "active"}, "owner1")
	if err != nil {
		t.Fatalf("列表失败: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("active 应有 2 条，实际 %d", resp.Total)
	}

	resp, err = pubSvc.List(ctx, &dto.ListPublicationsQuery{Search: "Celular"}, "owner1")
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("标题搜索应命中 2 条，实际 %d", resp.Total)
	}

	// 别的 owner 什么都看不到
	resp, err = pubSvc.List(ctx, &dto.ListPublicationsQuery{}, "owner2")
	if err != nil {
		t.Fatalf("列表失败: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("他人列表应为空，实际 %d", resp.Total)
	}
}

// ==================== 暂停与恢复 ====================

func TestPause_RemoteSuccess(t *testing.T) {
	remotePaused := false
	mux := http.NewServeMux()
	mux.HandleFunc("/items/MLA111222333", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			remotePaused = true
			w.WriteHeader(200)
			return
		}
		writeJSON(w, 200, fakeItem("MLA111222333"))
	})

	_, pubSvc, db, _ := newMeliTestEnv(t, mux)
	seedToken(t, db, "owner1", time.Hour)

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "x", Price: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	resp, err := pubSvc.Pause(context.Background(), info.ID, "owner1")
	if err != nil {
		t.Fatalf("暂停失败: %v", err)
	}
	if !resp.PausedInMeli {
		t.Error("远端暂停成功时 paused_in_meli 应为 true")
	}
	if !remotePaused {
		t.Error("应向远端发 PUT paused")
	}
	if !resp.Publication.IsPausedLocally {
		t.Error("本地标记应被打上")
	}
}

func TestPause_RemoteFailureStillPausesLocally(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/items/MLA111222333", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, meli.APIError{Message: "internal error", Status: 500})
	})

	_, pubSvc, db, _ := newMeliTestEnv(t, mux)
	seedToken(t, db, "owner1", time.Hour)

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "x", Price: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	resp, err := pubSvc.Pause(context.Background(), info.ID, "owner1")
	if err != nil {
		t.Fatalf("远端失败不应让暂停整体失败: %v", err)
	}
	if resp.PausedInMeli {
		t.Error("远端失败时 paused_in_meli 应为 false")
	}
	if !resp.Publication.IsPausedLocally {
		t.Error("远端失败也要本地标记")
	}
}

func TestActivate_LocalOnly(t *testing.T) {
	// 不挂任何远端接口：激活压根不应触达 Meli
	_, pubSvc, db, _ := newMeliTestEnv(t, http.NewServeMux())
	seedToken(t, db, "owner1", time.Hour)

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "x", Price: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	if _, err := pubSvc.Pause(context.Background(), info.ID, "owner1"); err != nil {
		t.Fatalf("暂停失败: %v", err)
	}

	activated, err := pubSvc.Activate(context.Background(), info.ID, "owner1")
	if err != nil {
		t.Fatalf("激活失败: %v", err)
	}
	if activated.IsPausedLocally {
		t.Error("激活后本地标记应清掉")
	}
}

func TestPermalinkFallback(t *testing.T) {
	_, pubSvc, _, _ := newMeliTestEnv(t, http.NewServeMux())

	info, err := pubSvc.Create(context.Background(), &dto.CreatePublicationRequest{
		MeliItemID: "MLA111222333", Title: "x", Price: 1,
	}, "owner1")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	want := "https://articulo.mercadolibre.com.ar/MLA-111222333"
	if info.Permalink != want {
		t.Errorf("缺 permalink 时应拼兜底链接: %s", info.Permalink)
	}
}
