package services

import (
	"math"
	"sort"

	"supply-planning-api/pkg/models"
)

const (
	// MinDemandMultiplier / MaxDemandMultiplier 需要倍率のクランプ範囲
	MinDemandMultiplier = 0.1
	MaxDemandMultiplier = 10.0
	// MinTargetUtilization / MaxTargetUtilization 目標稼働率のクランプ範囲
	MinTargetUtilization = 0.01
	MaxTargetUtilization = 1.0

	// FallbackCapacity 実績が無い場合の初期キャパシティ
	FallbackCapacity = 100.0
	// MinCapacityMax キャパシティ入力上限の下限値
	MinCapacityMax = 10.0

	defaultCapacityPercentile = 0.8
	defaultCapacityHeadroom   = 1.15
)

// PlanningEngine 需要・キャパシティ・稼働率の計画計算エンジン。
// 状態を持たないため、複数のgoroutineから同時に呼び出せる。
type PlanningEngine struct{}

// NewPlanningEngine 新しい計画計算エンジンを作成
func NewPlanningEngine() *PlanningEngine {
	return &PlanningEngine{}
}

// sanitize NaN・無限大・負数を0として扱う
func sanitize(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return value
}

// clamp サニタイズ後に[min, max]へ収める
func clamp(value, min, max float64) float64 {
	return math.Min(max, math.Max(min, sanitize(value)))
}

// ClampParameters パラメータを計算で使用する範囲に収める
func (e *PlanningEngine) ClampParameters(params models.PlanningParameters) models.PlanningParameters {
	return models.PlanningParameters{
		Capacity:          sanitize(params.Capacity),
		DemandMultiplier:  clamp(params.DemandMultiplier, MinDemandMultiplier, MaxDemandMultiplier),
		TargetUtilization: clamp(params.TargetUtilization, MinTargetUtilization, MaxTargetUtilization),
	}
}

// DeriveDefaultCapacity 実績の80パーセンタイルに15%の余裕を乗せた初期キャパシティを返す。
// ピークではなく80パーセンタイルを基準にするため、まれな需要スパイクは超過として扱われる。
func (e *PlanningEngine) DeriveDefaultCapacity(observations []models.DemandObservation) float64 {
	values := make([]float64, 0, len(observations))
	for _, obs := range observations {
		if items := sanitize(float64(obs.ItemCount)); items > 0 {
			values = append(values, items)
		}
	}

	if len(values) == 0 {
		return FallbackCapacity
	}

	sort.Float64s(values)

	// 最近傍ランク法
	idx := int(math.Floor(float64(len(values)) * defaultCapacityPercentile))
	if idx > len(values)-1 {
		idx = len(values) - 1
	}

	return math.Max(1, math.Ceil(values[idx]*defaultCapacityHeadroom))
}

// ComputeCapacityMax キャパシティ入力の上限を返す。rowsは直近に計算した計画行で、
// 需要倍率が変わるたびに再計算が必要。
func (e *PlanningEngine) ComputeCapacityMax(observations []models.DemandObservation, rows []models.PlanningRow) float64 {
	peakBaseline := 0.0
	for _, obs := range observations {
		peakBaseline = math.Max(peakBaseline, sanitize(float64(obs.ItemCount)))
	}

	peakAdjusted := 0.0
	for _, row := range rows {
		peakAdjusted = math.Max(peakAdjusted, sanitize(row.AdjustedDemand))
	}

	return math.Max(MinCapacityMax, math.Ceil(2*math.Max(peakBaseline, peakAdjusted)))
}

// ComputeRows 実績ごとに調整後需要・稼働率・推奨キャパシティを計算する。
// 出力は入力と同じ順序・同じ件数。
func (e *PlanningEngine) ComputeRows(observations []models.DemandObservation, params models.PlanningParameters) []models.PlanningRow {
	p := e.ClampParameters(params)

	rows := make([]models.PlanningRow, 0, len(observations))
	for _, obs := range observations {
		baseline := sanitize(float64(obs.ItemCount))
		adjusted := baseline * p.DemandMultiplier

		utilization := 0.0
		if p.Capacity > 0 {
			utilization = adjusted / p.Capacity
		}

		recommended := 0.0
		if p.TargetUtilization > 0 {
			recommended = adjusted / p.TargetUtilization
		}

		rows = append(rows, models.PlanningRow{
			Period:              obs.Period,
			Label:               periodLabel(obs.Period),
			Orders:              int64(sanitize(float64(obs.OrderCount))),
			Revenue:             sanitize(obs.Revenue),
			BaselineDemand:      baseline,
			AdjustedDemand:      adjusted,
			Capacity:            p.Capacity,
			Utilization:         utilization,
			UtilizationPct:      utilization * 100,
			TargetUtilization:   p.TargetUtilization,
			RecommendedCapacity: recommended,
		})
	}

	return rows
}

// ComputeSummary 計画行を集計する。空の場合はすべて0。
func (e *PlanningEngine) ComputeSummary(rows []models.PlanningRow) models.PlanningSummary {
	if len(rows) == 0 {
		return models.PlanningSummary{}
	}

	var peakAdjusted, sumAdjusted, peakUtil, sumUtil float64
	for _, row := range rows {
		adjusted := sanitize(row.AdjustedDemand)
		util := sanitize(row.Utilization)

		peakAdjusted = math.Max(peakAdjusted, adjusted)
		sumAdjusted += adjusted
		peakUtil = math.Max(peakUtil, util)
		sumUtil += util
	}

	n := float64(len(rows))
	target := sanitize(rows[0].TargetUtilization)

	recommendedForPeak := 0.0
	if target > 0 {
		recommendedForPeak = peakAdjusted / target
	}

	return models.PlanningSummary{
		Capacity:                   sanitize(rows[0].Capacity),
		TargetUtilization:          target,
		PeakAdjustedDemand:         peakAdjusted,
		AverageAdjustedDemand:      sumAdjusted / n,
		PeakUtilization:            peakUtil,
		AverageUtilization:         sumUtil / n,
		RecommendedCapacityForPeak: recommendedForPeak,
	}
}

// periodLabel グラフ軸用のMM-DD表記
func periodLabel(period string) string {
	if len(period) < 10 {
		return period
	}
	return period[5:]
}
