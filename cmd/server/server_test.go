package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	config "supply-planning-api/configs"
	"supply-planning-api/pkg/logger"
	"supply-planning-api/pkg/router"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// テスト環境の設定
	gin.SetMode(gin.TestMode)

	// .envファイルを読み込み（存在しない場合は無視）
	_ = godotenv.Load("../../.env")

	os.Exit(m.Run())
}

func TestApplicationSetup(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("DEMAND_SERIES_FILE", "")
	t.Setenv("LOG_ENCODING", "json")

	cfg := config.LoadConfig()
	require.NotNil(t, cfg, "Config should not be nil")

	zl, err := logger.New(cfg)
	require.NoError(t, err)

	deps, err := router.NewDependencies(cfg, zl)
	require.NoError(t, err)
	assert.Equal(t, 0, deps.Planning.Store().Len())

	r := router.New(deps)

	// ヘルスチェックのテスト
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 空の需要系列でも計画を返す
	req := httptest.NewRequest(http.MethodPost, "/api/v1/planning/plan", strings.NewReader(`{"granularity":"weekly"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"capacity_max":10`)
}
