package services

import (
	"sort"
	"time"

	"supply-planning-api/pkg/models"

	"github.com/shopspring/decimal"
)

// DefaultMonthlySalesLimit 月次売上の既定の表示月数
const DefaultMonthlySalesLimit = 12

const monthLayout = "2006-01"

// AnalyticsService 保存済み実績から売上分析を行うサービス
type AnalyticsService struct {
	store *DemandStore
}

// NewAnalyticsService 新しい分析サービスを作成
func NewAnalyticsService(store *DemandStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// MonthlySales 売上上位の月とウォーターフォールを返す
func (s *AnalyticsService) MonthlySales(limit int) models.MonthlySalesResponse {
	months := BuildMonthlySales(s.store.Daily(), limit)

	resp := models.MonthlySalesResponse{
		Months:    months,
		Waterfall: BuildSalesWaterfall(months),
	}
	if len(months) > 0 {
		top := months[0]
		resp.HighestMonth = &top
	}
	return resp
}

// BuildMonthlySales 日次実績を月単位に集計する。
// 売上0の月は除外し、売上の降順（同額は月の降順）で上位limit件を返す。
func BuildMonthlySales(daily []models.DemandObservation, limit int) []models.MonthlySales {
	if limit < 1 {
		limit = 1
	}

	type monthTotal struct {
		total    decimal.Decimal
		payments int64
	}
	totals := make(map[string]*monthTotal)
	for _, obs := range daily {
		date, err := time.ParseInLocation(periodLayout, obs.Period, time.UTC)
		if err != nil {
			continue
		}
		month := date.Format(monthLayout)

		t, ok := totals[month]
		if !ok {
			t = &monthTotal{total: decimal.Zero}
			totals[month] = t
		}
		t.total = t.total.Add(decimal.NewFromFloat(sanitize(obs.Revenue)))
		t.payments = addCount(t.payments, nonNegative(obs.OrderCount))
	}

	months := make([]models.MonthlySales, 0, len(totals))
	for month, t := range totals {
		if !t.total.IsPositive() {
			continue
		}
		months = append(months, models.MonthlySales{
			Month:    month,
			Total:    t.total.InexactFloat64(),
			Payments: t.payments,
		})
	}

	sort.Slice(months, func(i, j int) bool {
		if months[i].Total != months[j].Total {
			return months[i].Total > months[j].Total
		}
		return months[i].Month > months[j].Month
	})

	if len(months) > limit {
		months = months[:limit]
	}
	return months
}

// BuildSalesWaterfall 月ごとの積み上げ棒と、最後に合計棒を付けたウォーターフォールを返す
func BuildSalesWaterfall(months []models.MonthlySales) []models.WaterfallBar {
	bars := make([]models.WaterfallBar, 0, len(months)+1)
	if len(months) == 0 {
		return bars
	}

	running := decimal.Zero
	var payments int64
	for _, m := range months {
		start := running
		running = running.Add(decimal.NewFromFloat(m.Total))
		payments = addCount(payments, m.Payments)

		bars = append(bars, models.WaterfallBar{
			Label:      m.Month,
			Start:      start.InexactFloat64(),
			Value:      m.Total,
			Total:      m.Total,
			Payments:   m.Payments,
			Cumulative: running.InexactFloat64(),
		})
	}

	total := running.InexactFloat64()
	return append(bars, models.WaterfallBar{
		Label:      "Total",
		Value:      total,
		Total:      total,
		Payments:   payments,
		Cumulative: total,
		IsTotal:    true,
	})
}
