package handler

import (
	"log"
	"net/http"
	"sync"

	config "supply-planning-api/configs"
	"supply-planning-api/pkg/logger"
	"supply-planning-api/pkg/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	app     *gin.Engine
	initErr error
	once    sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() (*gin.Engine, error) {
	once.Do(func() {
		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()

		zl, err := logger.New(cfg)
		if err != nil {
			initErr = err
			return
		}

		gin.SetMode(gin.ReleaseMode)

		deps, err := router.NewDependencies(cfg, zl)
		if err != nil {
			zl.Error("failed to initialize services in serverless function", zap.Error(err))
			initErr = err
			return
		}

		app = router.New(deps)
	})
	return app, initErr
}

// Handler はVercelのエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	engine, err := setupApp()
	if err != nil {
		log.Printf("setupApp failed: %v", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	engine.ServeHTTP(w, r)
}
