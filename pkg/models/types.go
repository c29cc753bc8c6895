package models

import "time"

// Granularity 需要系列の集計粒度
type Granularity string

const (
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
)

// Valid 既知の粒度かどうか
func (g Granularity) Valid() bool {
	return g == GranularityDaily || g == GranularityWeekly
}

// DemandObservation 1期間分の需要実績（生成後は不変）
type DemandObservation struct {
	Period     string  `json:"period"` // 日次: YYYY-MM-DD / 週次: ISO週の月曜日
	OrderCount int64   `json:"orders"`
	ItemCount  int64   `json:"items"`
	Revenue    float64 `json:"revenue"`
}

// PlanningParameters オペレーターが調整する計画パラメータ
type PlanningParameters struct {
	Capacity          float64 `json:"capacity"`           // 1期間で処理できる最大アイテム数
	DemandMultiplier  float64 `json:"demand_multiplier"`  // [0.1, 10]
	TargetUtilization float64 `json:"target_utilization"` // [0.01, 1]
}

// PlanningRow 1期間分の計画結果
type PlanningRow struct {
	Period              string  `json:"period"`
	Label               string  `json:"label"`
	Orders              int64   `json:"orders"`
	Revenue             float64 `json:"revenue"`
	BaselineDemand      float64 `json:"baseline_demand"`
	AdjustedDemand      float64 `json:"adjusted_demand"`
	Capacity            float64 `json:"capacity"`
	Utilization         float64 `json:"utilization"`
	UtilizationPct      float64 `json:"utilization_pct"`
	TargetUtilization   float64 `json:"target_utilization"`
	RecommendedCapacity float64 `json:"recommended_capacity"`
}

// PlanningSummary 計画結果全体の集計
type PlanningSummary struct {
	Capacity                   float64 `json:"capacity"`
	TargetUtilization          float64 `json:"target_utilization"`
	PeakAdjustedDemand         float64 `json:"peak_adjusted_demand"`
	AverageAdjustedDemand      float64 `json:"average_adjusted_demand"`
	PeakUtilization            float64 `json:"peak_utilization"`
	AverageUtilization         float64 `json:"average_utilization"`
	RecommendedCapacityForPeak float64 `json:"recommended_capacity_for_peak"`
}

// PlanRequest 計画計算リクエスト
type PlanRequest struct {
	Granularity       Granularity         `json:"granularity"`
	Scenario          string              `json:"scenario,omitempty"`           // プリセット名（指定時は倍率・目標稼働率を上書き）
	Capacity          *float64            `json:"capacity,omitempty"`           // 未指定時は実績から既定値を算出
	DemandMultiplier  *float64            `json:"demand_multiplier,omitempty"`  // 未指定時は1.0
	TargetUtilization *float64            `json:"target_utilization,omitempty"` // 未指定時は0.8
	Observations      []DemandObservation `json:"observations,omitempty"`       // 指定時はストアの代わりに使用
}

// PlanResponse 計画計算結果
type PlanResponse struct {
	Granularity     Granularity        `json:"granularity"`
	Parameters      PlanningParameters `json:"parameters"`
	DefaultCapacity float64            `json:"default_capacity"`
	CapacityMax     float64            `json:"capacity_max"`
	Rows            []PlanningRow      `json:"rows"`
	Summary         PlanningSummary    `json:"summary"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// SeriesResponse 需要系列の取得結果
type SeriesResponse struct {
	Granularity  Granularity         `json:"granularity"`
	Observations []DemandObservation `json:"observations"`
	Count        int                 `json:"count"`
}

// ImportResult ファイル取り込み結果
type ImportResult struct {
	FileName      string `json:"file_name"`
	Mode          string `json:"mode"`
	RowsRead      int    `json:"rows_read"`
	RowsSkipped   int    `json:"rows_skipped"`
	Periods       int    `json:"periods"`
	StoredPeriods int    `json:"stored_periods"`
}

// MonthlySales 月次売上
type MonthlySales struct {
	Month    string  `json:"month"` // YYYY-MM
	Total    float64 `json:"total"`
	Payments int64   `json:"payments"` // 月内の注文数合計
}

// WaterfallBar 月次売上ウォーターフォールの1本（最後の1本は合計）
type WaterfallBar struct {
	Label      string  `json:"label"`
	Start      float64 `json:"start"`
	Value      float64 `json:"value"`
	Total      float64 `json:"total"`
	Payments   int64   `json:"payments"`
	Cumulative float64 `json:"cumulative"`
	IsTotal    bool    `json:"is_total"`
}

// MonthlySalesResponse 月次売上レスポンス
type MonthlySalesResponse struct {
	Months       []MonthlySales `json:"months"`
	Waterfall    []WaterfallBar `json:"waterfall"`
	HighestMonth *MonthlySales  `json:"highest_month"`
}
