package router

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"

	config "supply-planning-api/configs"
	"supply-planning-api/pkg/handlers"
	"supply-planning-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies ルーター構築に必要なサービス群
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Planning   *services.SupplyPlanningService
	Importer   *services.DemandImportService
	Analytics  *services.AnalyticsService
	Monitoring *services.MonitoringService
}

// NewDependencies 設定からサービスを初期化し、需要実績ファイルがあれば読み込む
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	scenarios, err := config.LoadScenarioConfig(config.DefaultScenarioFile)
	if err != nil {
		return nil, err
	}

	store := services.NewDemandStore()
	importer := services.NewDemandImportService(logger)

	if cfg.DemandSeriesFile != "" {
		if err := seedStore(store, importer, cfg.DemandSeriesFile); err != nil {
			return nil, err
		}
	}

	return &Dependencies{
		Config:     cfg,
		Logger:     logger,
		Planning:   services.NewSupplyPlanningService(store, scenarios, cfg.DailyLimitDays, cfg.WeeklyLimitWeeks, logger),
		Importer:   importer,
		Analytics:  services.NewAnalyticsService(store),
		Monitoring: services.NewMonitoringService(logger),
	}, nil
}

func seedStore(store *services.DemandStore, importer *services.DemandImportService, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("需要実績ファイルを開けません: %w", err)
	}
	defer f.Close()

	observations, _, err := importer.ImportFile(path, f)
	if err != nil {
		return fmt.Errorf("需要実績ファイルの取り込みに失敗: %w", err)
	}
	store.Replace(observations)
	return nil
}

// New Ginルーターを構築する
func New(deps *Dependencies) *gin.Engine {
	r := gin.New()

	// ミドルウェアの登録
	r.Use(gin.Recovery())
	r.Use(deps.Monitoring.LoggingMiddleware())
	r.Use(cors.New(corsConfig(deps.Config.CORSAllowedOrigins)))

	adminHandler := handlers.NewAdminHandler(deps.Config)
	monitoringHandler := handlers.NewMonitoringHandler(deps.Monitoring)
	planningHandler := handlers.NewSupplyPlanningHandler(deps.Planning, deps.Importer)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Analytics)

	// ヘルスチェックエンドポイント
	r.GET("/health", adminHandler.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(deps.Config.APIKey))
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}

		// 供給計画API
		planning := v1.Group("/planning")
		{
			planning.GET("/settings", planningHandler.GetSettings)
			planning.GET("/series", planningHandler.GetSeries)
			planning.POST("/plan", planningHandler.ComputePlan)
			planning.POST("/import", planningHandler.ImportDemand)
			planning.POST("/export", planningHandler.ExportPlan)
		}

		// 売上分析API
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/monthly-sales", analyticsHandler.GetMonthlySales)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AddAllowHeaders("X-API-KEY", services.RequestIDHeader)
	c.AddExposeHeaders(services.RequestIDHeader, "Content-Disposition")
	return c
}

// authMiddleware API Keyが設定されている場合のみX-API-KEYヘッダーを検証する
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader("X-API-KEY")), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
