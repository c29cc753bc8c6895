package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"supply-planning-api/pkg/models"
	"supply-planning-api/pkg/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SupplyPlanningHandler 供給計画ハンドラー
type SupplyPlanningHandler struct {
	planningService *services.SupplyPlanningService
	importService   *services.DemandImportService
}

// NewSupplyPlanningHandler 新しい供給計画ハンドラーを作成
func NewSupplyPlanningHandler(planningService *services.SupplyPlanningService, importService *services.DemandImportService) *SupplyPlanningHandler {
	return &SupplyPlanningHandler{
		planningService: planningService,
		importService:   importService,
	}
}

// GetSettings スライダー範囲・シナリオ・初期キャパシティを取得
func (h *SupplyPlanningHandler) GetSettings(c *gin.Context) {
	settings, err := h.planningService.Settings()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, settings)
}

// GetSeries 日次・週次の需要系列を取得
func (h *SupplyPlanningHandler) GetSeries(c *gin.Context) {
	granularity := models.Granularity(c.DefaultQuery("granularity", string(models.GranularityDaily)))

	series, err := h.planningService.Series(granularity)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, models.SeriesResponse{
		Granularity:  granularity,
		Observations: series,
		Count:        len(series),
	})
}

// ComputePlan 需要・キャパシティ・稼働率の計画を計算
func (h *SupplyPlanningHandler) ComputePlan(c *gin.Context) {
	req, ok := bindPlanRequest(c)
	if !ok {
		return
	}

	plan, err := h.planningService.Plan(req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, plan)
}

// ExportPlan 計画結果を.xlsxとしてダウンロード
func (h *SupplyPlanningHandler) ExportPlan(c *gin.Context) {
	req, ok := bindPlanRequest(c)
	if !ok {
		return
	}

	plan, err := h.planningService.Plan(req)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.planningService.ExportWorkbook(plan, &buf); err != nil {
		respondError(c, err)
		return
	}

	fileName := fmt.Sprintf("supply-plan-%s-%s.xlsx", plan.Granularity, plan.GeneratedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportDemand 需要実績ファイル（.xlsx / .csv）を取り込む
func (h *SupplyPlanningHandler) ImportDemand(c *gin.Context) {
	mode := c.DefaultPostForm("mode", "replace")
	if mode != "replace" && mode != "append" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("無効なモードです: %s。'replace' または 'append' を指定してください。", mode),
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ファイルの取得に失敗しました。"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ファイルを開けませんでした。"})
		return
	}
	defer file.Close()

	observations, stats, err := h.importService.ImportFile(fileHeader.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}

	store := h.planningService.Store()
	if mode == "append" {
		store.Merge(observations)
	} else {
		store.Replace(observations)
	}

	respondOK(c, models.ImportResult{
		FileName:      fileHeader.Filename,
		Mode:          mode,
		RowsRead:      stats.RowsRead,
		RowsSkipped:   stats.RowsSkipped,
		Periods:       len(observations),
		StoredPeriods: store.Len(),
	})
}

// bindPlanRequest リクエストボディを計画リクエストとしてバインド（空ボディは既定値）
func bindPlanRequest(c *gin.Context) (models.PlanRequest, bool) {
	var req models.PlanRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "リクエストの解析に失敗しました: " + err.Error(),
		})
		return req, false
	}
	return req, true
}
