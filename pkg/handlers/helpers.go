package handlers

import (
	"errors"
	"net/http"

	"supply-planning-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// respondOK 成功レスポンス
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError サービス層のエラーをHTTPステータスに対応付けて返す
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidGranularity),
		errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrMissingColumns),
		errors.Is(err, services.ErrNoData):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnknownScenario):
		status = http.StatusNotFound
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
