package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"meli_hub_v1/internal/controller"
	"meli_hub_v1/internal/middleware"
	"meli_hub_v1/internal/model"
	"meli_hub_v1/internal/repository"
	"meli_hub_v1/internal/router"
	"meli_hub_v1/internal/service"
	"meli_hub_v1/pkg/config"
	"meli_hub_v1/pkg/meli"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 请求构造辅助 ====================

// setupApp 完整路由 + 内存数据库 (不挂真实 Meli)
func setupApp(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.SysUser{}, &model.MeliToken{},
		&model.Publication{}, &model.PublicationDescription{}, &model.PublicationAnalysis{},
	); err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}

	client := meli.NewClient()
	userSvc := service.NewUserService(repository.NewUserRepository(db))
	meliSvc := service.NewMeliService(repository.NewTokenRepository(db), client, config.MeliConfig{})
	pubSvc := service.NewPublicationService(repository.NewPublicationRepository(db))
	meliSvc.PubSvc = pubSvc
	pubSvc.MeliSvc = meliSvc
	analysisSvc := service.NewAnalysisService(repository.NewAnalysisRepository(db), pubSvc, client, config.OpenAIConfig{})

	r := gin.New()
	router.InitRoutes(r,
		controller.NewUserController(userSvc),
		controller.NewMeliController(meliSvc, "http://localhost:3000"),
		controller.NewPublicationController(pubSvc),
		controller.NewAnalysisController(analysisSvc),
	)
	return r, db
}

func performRequest(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testToken(t *testing.T) string {
	t.Helper()
	access, _, err := middleware.GenerateTokenPair(1, "operador", "user")
	if err != nil {
		t.Fatalf("生成测试 Token 失败: %v", err)
	}
	return access
}

// ==================== 鉴权 ====================

func TestPublications_RequireAuth(t *testing.T) {
	r, _ := setupApp(t)

	w := performRequest(r, http.MethodGet, "/api/publications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodGet, "/api/publications", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ==================== CRUD 流程 ====================

func TestPublicationLifecycle(t *testing.T) {
	r, _ := setupApp(t)
	token := testToken(t)

	// 1. 创建
	w := performRequest(r, http.MethodPost, "/api/publications", token, map[string]interface{}{
		"meli_item_id": "MLA111222333",
		"title":        "Celular de prueba",
		"price":        149999.5,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var created map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := int64(created["id"].(float64))
	assert.Equal(t, "MLA111222333", created["meli_item_id"])

	// 2. 重复创建 → 409
	w = performRequest(r, http.MethodPost, "/api/publications", token, map[string]interface{}{
		"meli_item_id": "MLA111222333",
		"title":        "duplicado",
		"price":        1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 3. 列表
	w = performRequest(r, http.MethodGet, "/api/publications", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list["total"])

	// 4. 详情
	w = performRequest(r, http.MethodGet, "/api/publications/"+jsonNumber(id), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 5. 暂停 (没绑定远端 Token，paused_in_meli=false，本地标记为准)
	w = performRequest(r, http.MethodPost, "/api/publications/"+jsonNumber(id)+"/pause", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var paused map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &paused))
	assert.Equal(t, false, paused["paused_in_meli"])
	pub := paused["publication"].(map[string]interface{})
	assert.Equal(t, true, pub["is_paused_locally"])
	assert.Equal(t, "paused", pub["effective_status"])

	// 6. 恢复
	w = performRequest(r, http.MethodPost, "/api/publications/"+jsonNumber(id)+"/activate", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var activated map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &activated))
	assert.Equal(t, false, activated["is_paused_locally"])

	// 7. 删除
	w = performRequest(r, http.MethodDelete, "/api/publications/"+jsonNumber(id), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(r, http.MethodGet, "/api/publications/"+jsonNumber(id), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublication_InvalidParams(t *testing.T) {
	r, _ := setupApp(t)
	token := testToken(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"缺 meli_item_id", map[string]interface{}{"title": "x", "price": 1}},
		{"缺 title", map[string]interface{}{"meli_item_id": "MLA1", "price": 1}},
		{"价格为 0", map[string]interface{}{"meli_item_id": "MLA1", "title": "x", "price": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, http.MethodPost, "/api/publications", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// 非数字 ID
	w := performRequest(r, http.MethodGet, "/api/publications/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeliStatus_NotConnected(t *testing.T) {
	r, _ := setupApp(t)
	token := testToken(t)

	w := performRequest(r, http.MethodGet, "/api/meli/status", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, false, status["connected"])
}

func TestMeliCallback_ForgedState(t *testing.T) {
	r, _ := setupApp(t)

	// 回调是公开路由，但伪造 state 必须 400
	w := performRequest(r, http.MethodGet, "/api/meli/callback?code=abc&state=forged", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// jsonNumber int64 转路径片段
func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
