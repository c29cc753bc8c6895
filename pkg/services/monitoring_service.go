package services

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader リクエストIDのヘッダー名
const RequestIDHeader = "X-Request-ID"

const defaultMaxLogEntries = 10000

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	RequestID    string        `json:"request_id"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService はAPIのモニタリング機能を提供します。
type MonitoringService struct {
	logs       []LogEntry
	maxEntries int
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService(logger *zap.Logger) *MonitoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{
		logs:       make([]LogEntry, 0),
		maxEntries: defaultMaxLogEntries,
		logger:     logger,
	}
}

// LogRequest はリクエストを記録します。
// ログが上限の2倍に達した時点で直近maxEntries件だけを残します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) >= 2*s.maxEntries {
		kept := make([]LogEntry, s.maxEntries, 2*s.maxEntries)
		copy(kept, s.logs[len(s.logs)-s.maxEntries:])
		s.logs = kept
	}
}

// recent は直近maxEntries件のログを返します。呼び出し側でロックを保持してください。
func (s *MonitoringService) recent() []LogEntry {
	if over := len(s.logs) - s.maxEntries; over > 0 {
		return s.logs[over:]
	}
	return s.logs
}

// LoggingMiddleware はリクエストIDを付与し、リクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		path := c.Request.URL.Path
		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if status >= 500 {
			s.logger.Error("request", fields...)
		} else {
			s.logger.Info("request", fields...)
		}

		// 管理・モニタリング系のパスは集計対象外
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			RequestID:    requestID,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   status,
			ResponseTime: latency,
		})
	}
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	return s.dashboardAt(time.Now().UTC(), periodHours)
}

func (s *MonitoringService) dashboardAt(now time.Time, periodHours int) DashboardData {
	if periodHours < 1 {
		periodHours = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.recent() {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// 過去から現在へ向かう順序で時間バケットを作成
	requestsOverTime := make([]map[string]interface{}, periodHours)
	bucketIndex := make(map[time.Time]int, periodHours)
	for i := 0; i < periodHours; i++ {
		bucket := now.Add(-time.Duration(periodHours-1-i) * time.Hour).Truncate(time.Hour)
		bucketIndex[bucket] = i
		requestsOverTime[i] = map[string]interface{}{"time": bucket.Format("15:00"), "requests": 0}
	}

	endpoints := make(map[string]int)
	statusCodes := map[string]int{
		"2xx Success":      0,
		"4xx Client Error": 0,
		"5xx Server Error": 0,
	}
	responseTimeSum := make(map[string]time.Duration)
	responseCount := make(map[string]int)

	for _, entry := range filtered {
		if i, ok := bucketIndex[entry.Timestamp.UTC().Truncate(time.Hour)]; ok {
			requestsOverTime[i]["requests"] = requestsOverTime[i]["requests"].(int) + 1
		}

		endpoints[entry.Path]++

		switch {
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusCodes["2xx Success"]++
		case entry.StatusCode >= 400 && entry.StatusCode < 500:
			statusCodes["4xx Client Error"]++
		case entry.StatusCode >= 500:
			statusCodes["5xx Server Error"]++
		}

		responseTimeSum[entry.Path] += entry.ResponseTime
		responseCount[entry.Path]++
	}

	statusCodesSlice := make([]map[string]interface{}, 0, len(statusCodes))
	for name, value := range statusCodes {
		statusCodesSlice = append(statusCodesSlice, map[string]interface{}{"name": name, "value": value})
	}

	avgResponseTimes := make([]map[string]interface{}, 0, len(responseTimeSum))
	for path, total := range responseTimeSum {
		avg := total.Milliseconds() / int64(responseCount[path])
		avgResponseTimes = append(avgResponseTimes, map[string]interface{}{"endpoint": path, "responseTime": avg})
	}

	// 直近の5xxエラー（最大10件）
	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	return DashboardData{
		RequestsOverTime: requestsOverTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodesSlice,
		AvgResponseTimes: avgResponseTimes,
		RecentErrors:     recentErrors,
	}
}
