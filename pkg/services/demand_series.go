package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"supply-planning-api/pkg/models"

	"github.com/shopspring/decimal"
)

const periodLayout = "2006-01-02"

// IsoWeekStart 日付を含むISO週の月曜日（UTC）を返す
func IsoWeekStart(period string) (string, bool) {
	date, err := time.ParseInLocation(periodLayout, strings.TrimSpace(period), time.UTC)
	if err != nil {
		return "", false
	}

	mondayOffset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -mondayOffset).Format(periodLayout), true
}

// WeeklyWindowDays 週次系列の作成に必要な日次データの日数
func WeeklyWindowDays(limitWeeks int) int {
	if limitWeeks < 1 {
		limitWeeks = 1
	}
	return limitWeeks * 14
}

type weekBucket struct {
	orders  int64
	items   int64
	revenue decimal.Decimal
}

// BuildWeeklySeries 日次実績をISO週（月曜始まり）単位に集計する。
// 結果は期間の昇順で、直近limitWeeks週分に絞り込まれる。
func BuildWeeklySeries(daily []models.DemandObservation, limitWeeks int) []models.DemandObservation {
	if limitWeeks < 1 {
		limitWeeks = 1
	}

	totals := make(map[string]*weekBucket)
	for _, entry := range daily {
		weekStart, ok := IsoWeekStart(entry.Period)
		if !ok {
			continue
		}

		bucket, exists := totals[weekStart]
		if !exists {
			bucket = &weekBucket{revenue: decimal.Zero}
			totals[weekStart] = bucket
		}
		bucket.orders = addCount(bucket.orders, nonNegative(entry.OrderCount))
		bucket.items = addCount(bucket.items, nonNegative(entry.ItemCount))
		bucket.revenue = bucket.revenue.Add(decimal.NewFromFloat(sanitize(entry.Revenue)))
	}

	weeks := make([]string, 0, len(totals))
	for week := range totals {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	if len(weeks) > limitWeeks {
		weeks = weeks[len(weeks)-limitWeeks:]
	}

	series := make([]models.DemandObservation, 0, len(weeks))
	for _, week := range weeks {
		bucket := totals[week]
		series = append(series, models.DemandObservation{
			Period:     week,
			OrderCount: bucket.orders,
			ItemCount:  bucket.items,
			Revenue:    bucket.revenue.InexactFloat64(),
		})
	}

	return series
}

// TrimDailySeries 日次実績を期間順に並べ、直近limitDays日分を返す
func TrimDailySeries(daily []models.DemandObservation, limitDays int) []models.DemandObservation {
	if limitDays < 1 {
		limitDays = 1
	}

	sorted := make([]models.DemandObservation, len(daily))
	copy(sorted, daily)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period < sorted[j].Period
	})

	if len(sorted) > limitDays {
		sorted = sorted[len(sorted)-limitDays:]
	}
	return sorted
}

// FilterPlannable 期間が空、またはアイテム数が0以下の実績を除外する
func FilterPlannable(observations []models.DemandObservation) []models.DemandObservation {
	filtered := make([]models.DemandObservation, 0, len(observations))
	for _, obs := range observations {
		if strings.TrimSpace(obs.Period) == "" || obs.ItemCount <= 0 {
			continue
		}
		filtered = append(filtered, obs)
	}
	return filtered
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// addCount 非負の件数を加算する。int64の上限で飽和させる
func addCount(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
