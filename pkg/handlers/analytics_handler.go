package handlers

import (
	"net/http"
	"strconv"

	"supply-planning-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 売上分析ハンドラー
type AnalyticsHandler struct {
	service *services.AnalyticsService
}

// NewAnalyticsHandler 新しい売上分析ハンドラーを作成
func NewAnalyticsHandler(service *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// GetMonthlySales 月次売上の上位とウォーターフォールを取得
func (h *AnalyticsHandler) GetMonthlySales(c *gin.Context) {
	limit := services.DefaultMonthlySalesLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "limitは整数で指定してください: " + raw,
			})
			return
		}
		limit = n
	}

	respondOK(c, h.service.MonthlySales(limit))
}
