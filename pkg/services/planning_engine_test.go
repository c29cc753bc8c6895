package services

import (
	"math"
	"sync"
	"testing"

	"supply-planning-api/pkg/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func observationsWithItems(items ...int64) []models.DemandObservation {
	obs := make([]models.DemandObservation, len(items))
	for i, n := range items {
		obs[i] = models.DemandObservation{
			Period:     "2024-01-" + twoDigits(i+1),
			OrderCount: n / 10,
			ItemCount:  n,
			Revenue:    float64(n) * 12.5,
		}
	}
	return obs
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func TestComputeRowsDeterministic(t *testing.T) {
	engine := NewPlanningEngine()
	obs := observationsWithItems(12, 40, 7, 99, 63)
	params := models.PlanningParameters{Capacity: 80, DemandMultiplier: 1.25, TargetUtilization: 0.85}

	first := engine.ComputeRows(obs, params)
	second := engine.ComputeRows(obs, params)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ComputeRows is not deterministic (-first +second):\n%s", diff)
	}
}

func TestComputeRowsPreservesOrder(t *testing.T) {
	engine := NewPlanningEngine()
	obs := []models.DemandObservation{
		{Period: "2024-03-05", ItemCount: 5},
		{Period: "2024-01-01", ItemCount: 1},
		{Period: "2024-02-10", ItemCount: 3},
	}

	rows := engine.ComputeRows(obs, models.PlanningParameters{Capacity: 10, DemandMultiplier: 1, TargetUtilization: 0.8})

	require.Len(t, rows, len(obs))
	for i := range obs {
		assert.Equal(t, obs[i].Period, rows[i].Period)
	}
	assert.Equal(t, "03-05", rows[0].Label)
}

func TestComputeRowsZeroCapacity(t *testing.T) {
	engine := NewPlanningEngine()
	obs := []models.DemandObservation{{Period: "2024-01-01", OrderCount: 1, ItemCount: 50, Revenue: 500}}

	rows := engine.ComputeRows(obs, models.PlanningParameters{Capacity: 0, DemandMultiplier: 1, TargetUtilization: 0.8})

	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].Utilization)
	assert.False(t, math.IsNaN(rows[0].Utilization) || math.IsInf(rows[0].Utilization, 0))
	assert.Equal(t, 50.0, rows[0].AdjustedDemand)
	assert.Equal(t, 62.5, rows[0].RecommendedCapacity)
	assert.Equal(t, int64(1), rows[0].Orders)
	assert.Equal(t, 500.0, rows[0].Revenue)
}

func TestClampParameters(t *testing.T) {
	engine := NewPlanningEngine()

	tests := []struct {
		name   string
		in     models.PlanningParameters
		expect models.PlanningParameters
	}{
		{
			name:   "multiplier above max",
			in:     models.PlanningParameters{Capacity: 10, DemandMultiplier: 50, TargetUtilization: 0.5},
			expect: models.PlanningParameters{Capacity: 10, DemandMultiplier: 10, TargetUtilization: 0.5},
		},
		{
			name:   "multiplier zero and target zero",
			in:     models.PlanningParameters{Capacity: 10, DemandMultiplier: 0, TargetUtilization: 0},
			expect: models.PlanningParameters{Capacity: 10, DemandMultiplier: 0.1, TargetUtilization: 0.01},
		},
		{
			name:   "target above one",
			in:     models.PlanningParameters{Capacity: 10, DemandMultiplier: 1, TargetUtilization: 3},
			expect: models.PlanningParameters{Capacity: 10, DemandMultiplier: 1, TargetUtilization: 1},
		},
		{
			name:   "non finite and negative",
			in:     models.PlanningParameters{Capacity: math.Inf(1), DemandMultiplier: math.NaN(), TargetUtilization: -0.4},
			expect: models.PlanningParameters{Capacity: 0, DemandMultiplier: 0.1, TargetUtilization: 0.01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, engine.ClampParameters(tt.in))
		})
	}
}

func TestComputeRowsAppliesClamping(t *testing.T) {
	engine := NewPlanningEngine()
	obs := []models.DemandObservation{{Period: "2024-01-01", ItemCount: 50}}

	high := engine.ComputeRows(obs, models.PlanningParameters{Capacity: 100, DemandMultiplier: 50, TargetUtilization: 0.5})
	assert.Equal(t, 500.0, high[0].AdjustedDemand)
	assert.Equal(t, 5.0, high[0].Utilization)

	low := engine.ComputeRows(obs, models.PlanningParameters{Capacity: 100, DemandMultiplier: 0, TargetUtilization: 0})
	assert.InDelta(t, 5.0, low[0].AdjustedDemand, 1e-9)
	assert.Equal(t, 0.01, low[0].TargetUtilization)
	assert.InDelta(t, 500.0, low[0].RecommendedCapacity, 1e-6)
	assert.False(t, math.IsInf(low[0].RecommendedCapacity, 0))
}

func TestComputeRowsSanitizesObservationFields(t *testing.T) {
	engine := NewPlanningEngine()
	obs := []models.DemandObservation{{Period: "2024-01-01", OrderCount: -3, ItemCount: -20, Revenue: math.NaN()}}

	rows := engine.ComputeRows(obs, models.PlanningParameters{Capacity: 10, DemandMultiplier: 1, TargetUtilization: 0.8})

	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0].Orders)
	assert.Equal(t, 0.0, rows[0].Revenue)
	assert.Equal(t, 0.0, rows[0].BaselineDemand)
	assert.Equal(t, 0.0, rows[0].Utilization)
}

func TestDeriveDefaultCapacity(t *testing.T) {
	engine := NewPlanningEngine()

	t.Run("eightieth percentile with headroom", func(t *testing.T) {
		obs := observationsWithItems(100, 90, 80, 70, 60, 50, 40, 30, 20, 10)
		assert.Equal(t, 104.0, engine.DeriveDefaultCapacity(obs))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, 100.0, engine.DeriveDefaultCapacity(nil))
		assert.Equal(t, 100.0, engine.DeriveDefaultCapacity([]models.DemandObservation{}))
	})

	t.Run("only zero or negative demand", func(t *testing.T) {
		assert.Equal(t, 100.0, engine.DeriveDefaultCapacity(observationsWithItems(0, -5, 0)))
	})

	t.Run("single observation clamps rank to last index", func(t *testing.T) {
		// floor(0.8*1)=0 -> 10*1.15 -> ceil 12
		assert.Equal(t, 12.0, engine.DeriveDefaultCapacity(observationsWithItems(10)))
	})

	t.Run("floored at one", func(t *testing.T) {
		assert.GreaterOrEqual(t, engine.DeriveDefaultCapacity(observationsWithItems(1)), 1.0)
	})
}

func TestComputeCapacityMax(t *testing.T) {
	engine := NewPlanningEngine()

	assert.Equal(t, 10.0, engine.ComputeCapacityMax(nil, nil))

	obs := observationsWithItems(20, 45, 30)
	rows := engine.ComputeRows(obs, models.PlanningParameters{Capacity: 50, DemandMultiplier: 1, TargetUtilization: 0.8})
	assert.Equal(t, 90.0, engine.ComputeCapacityMax(obs, rows))

	// 倍率が上がると上限も追従する
	rows = engine.ComputeRows(obs, models.PlanningParameters{Capacity: 50, DemandMultiplier: 1.5, TargetUtilization: 0.8})
	assert.Equal(t, 135.0, engine.ComputeCapacityMax(obs, rows))

	assert.Equal(t, 10.0, engine.ComputeCapacityMax(observationsWithItems(2), nil))
}

func TestComputeSummary(t *testing.T) {
	engine := NewPlanningEngine()
	obs := observationsWithItems(30, 60, 90)

	rows := engine.ComputeRows(obs, models.PlanningParameters{Capacity: 60, DemandMultiplier: 1, TargetUtilization: 0.5})
	require.Len(t, rows, 3)
	assert.Equal(t, []float64{0.5, 1.0, 1.5}, []float64{rows[0].Utilization, rows[1].Utilization, rows[2].Utilization})

	summary := engine.ComputeSummary(rows)

	assert.Equal(t, 90.0, summary.PeakAdjustedDemand)
	assert.Equal(t, 60.0, summary.AverageAdjustedDemand)
	assert.Equal(t, 1.5, summary.PeakUtilization)
	assert.Equal(t, 1.0, summary.AverageUtilization)
	assert.Equal(t, 180.0, summary.RecommendedCapacityForPeak)
	assert.Equal(t, 60.0, summary.Capacity)
	assert.Equal(t, 0.5, summary.TargetUtilization)
}

func TestEmptyInputs(t *testing.T) {
	engine := NewPlanningEngine()

	rows := engine.ComputeRows(nil, models.PlanningParameters{Capacity: 10, DemandMultiplier: 2, TargetUtilization: 0.9})
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	assert.Equal(t, models.PlanningSummary{}, engine.ComputeSummary(nil))
	assert.Equal(t, models.PlanningSummary{}, engine.ComputeSummary([]models.PlanningRow{}))
}

func TestComputeSummaryIgnoresNonFiniteRowValues(t *testing.T) {
	engine := NewPlanningEngine()
	rows := []models.PlanningRow{
		{AdjustedDemand: math.NaN(), Utilization: math.Inf(1), TargetUtilization: 0.5},
		{AdjustedDemand: 40, Utilization: 0.4, TargetUtilization: 0.5},
	}

	summary := engine.ComputeSummary(rows)

	assert.Equal(t, 40.0, summary.PeakAdjustedDemand)
	assert.Equal(t, 20.0, summary.AverageAdjustedDemand)
	assert.Equal(t, 0.4, summary.PeakUtilization)
	assert.Equal(t, 80.0, summary.RecommendedCapacityForPeak)
}

func TestEngineConcurrentUse(t *testing.T) {
	engine := NewPlanningEngine()
	obs := observationsWithItems(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)

	var wg sync.WaitGroup
	results := make([]models.PlanningSummary, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			params := models.PlanningParameters{Capacity: float64(50 + i), DemandMultiplier: 1, TargetUtilization: 0.8}
			results[i] = engine.ComputeSummary(engine.ComputeRows(obs, params))
		}(i)
	}
	wg.Wait()

	for i, summary := range results {
		assert.Equal(t, 100.0, summary.PeakAdjustedDemand)
		assert.InDelta(t, 100.0/float64(50+i), summary.PeakUtilization, 1e-12)
	}
}
