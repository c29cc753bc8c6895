package services

import (
	"errors"
	"fmt"
	"io"
	"time"

	config "supply-planning-api/configs"
	"supply-planning-api/pkg/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	// ErrInvalidGranularity daily / weekly 以外の粒度
	ErrInvalidGranularity = errors.New("無効な粒度です")
	// ErrUnknownScenario 存在しないシナリオ名
	ErrUnknownScenario = errors.New("シナリオが見つかりません")
)

// SupplyPlanningService 需要系列の取得と計画計算をまとめるサービス
type SupplyPlanningService struct {
	engine      *PlanningEngine
	store       *DemandStore
	scenarios   *config.ScenarioConfig
	dailyLimit  int
	weeklyLimit int
	logger      *zap.Logger
}

// NewSupplyPlanningService 新しい供給計画サービスを作成
func NewSupplyPlanningService(store *DemandStore, scenarios *config.ScenarioConfig, dailyLimit, weeklyLimit int, logger *zap.Logger) *SupplyPlanningService {
	if scenarios == nil {
		scenarios = config.DefaultScenarioConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplyPlanningService{
		engine:      NewPlanningEngine(),
		store:       store,
		scenarios:   scenarios,
		dailyLimit:  dailyLimit,
		weeklyLimit: weeklyLimit,
		logger:      logger,
	}
}

// Store 実績ストアへの参照を返す
func (s *SupplyPlanningService) Store() *DemandStore {
	return s.store
}

// Series 指定粒度の計画対象系列を返す
func (s *SupplyPlanningService) Series(granularity models.Granularity) ([]models.DemandObservation, error) {
	// アイテム数0の日は期間枠を消費しない
	daily := FilterPlannable(s.store.Daily())

	switch granularity {
	case models.GranularityDaily:
		return TrimDailySeries(daily, s.dailyLimit), nil
	case models.GranularityWeekly:
		window := TrimDailySeries(daily, WeeklyWindowDays(s.weeklyLimit))
		return FilterPlannable(BuildWeeklySeries(window, s.weeklyLimit)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidGranularity, granularity)
	}
}

// Plan 計画を計算する。パラメータの優先順位は 既定値 < シナリオ < リクエストの明示値。
func (s *SupplyPlanningService) Plan(req models.PlanRequest) (*models.PlanResponse, error) {
	granularity := req.Granularity
	if granularity == "" {
		granularity = models.Granularity(s.scenarios.Defaults.Granularity)
	}
	if !granularity.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGranularity, granularity)
	}

	var observations []models.DemandObservation
	if len(req.Observations) > 0 {
		observations = FilterPlannable(req.Observations)
	} else {
		var err error
		observations, err = s.Series(granularity)
		if err != nil {
			return nil, err
		}
	}

	multiplier := s.scenarios.Defaults.DemandMultiplier
	target := s.scenarios.Defaults.TargetUtilization
	if req.Scenario != "" {
		scenario, ok := s.scenarios.FindScenario(req.Scenario)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, req.Scenario)
		}
		multiplier = scenario.DemandMultiplier
		target = scenario.TargetUtilization
	}
	if req.DemandMultiplier != nil {
		multiplier = *req.DemandMultiplier
	}
	if req.TargetUtilization != nil {
		target = *req.TargetUtilization
	}

	defaultCapacity := s.engine.DeriveDefaultCapacity(observations)
	capacity := defaultCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	params := s.engine.ClampParameters(models.PlanningParameters{
		Capacity:          capacity,
		DemandMultiplier:  multiplier,
		TargetUtilization: target,
	})

	rows := s.engine.ComputeRows(observations, params)
	summary := s.engine.ComputeSummary(rows)
	summary.Capacity = params.Capacity
	summary.TargetUtilization = params.TargetUtilization

	s.logger.Debug("supply plan computed",
		zap.String("granularity", string(granularity)),
		zap.Int("periods", len(rows)),
		zap.Float64("capacity", params.Capacity),
		zap.Float64("demand_multiplier", params.DemandMultiplier),
		zap.Float64("target_utilization", params.TargetUtilization),
		zap.Float64("peak_utilization", summary.PeakUtilization),
	)

	return &models.PlanResponse{
		Granularity:     granularity,
		Parameters:      params,
		DefaultCapacity: defaultCapacity,
		CapacityMax:     s.engine.ComputeCapacityMax(observations, rows),
		Rows:            rows,
		Summary:         summary,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// GranularitySettings 粒度ごとのキャパシティ初期値と上限
type GranularitySettings struct {
	Periods         int     `json:"periods"`
	DefaultCapacity float64 `json:"default_capacity"`
	CapacityMax     float64 `json:"capacity_max"`
}

// PlanningSettings UI向けの入力範囲とプリセット
type PlanningSettings struct {
	Defaults struct {
		Granularity       string  `json:"granularity"`
		DemandMultiplier  float64 `json:"demand_multiplier"`
		TargetUtilization float64 `json:"target_utilization"`
	} `json:"defaults"`
	Sliders struct {
		DemandMultiplier  config.SliderRange `json:"demand_multiplier"`
		TargetUtilization config.SliderRange `json:"target_utilization"`
	} `json:"sliders"`
	Clamp struct {
		DemandMultiplier  [2]float64 `json:"demand_multiplier"`
		TargetUtilization [2]float64 `json:"target_utilization"`
	} `json:"clamp"`
	Granularities map[models.Granularity]GranularitySettings `json:"granularities"`
	Scenarios     []config.PlanningScenario                   `json:"scenarios"`
}

// Settings スライダー範囲・シナリオ・粒度ごとの初期キャパシティを返す
func (s *SupplyPlanningService) Settings() (*PlanningSettings, error) {
	settings := &PlanningSettings{
		Granularities: make(map[models.Granularity]GranularitySettings),
		Scenarios:     s.scenarios.Scenarios,
	}
	settings.Defaults.Granularity = s.scenarios.Defaults.Granularity
	settings.Defaults.DemandMultiplier = s.scenarios.Defaults.DemandMultiplier
	settings.Defaults.TargetUtilization = s.scenarios.Defaults.TargetUtilization
	settings.Sliders.DemandMultiplier = s.scenarios.Sliders.DemandMultiplier
	settings.Sliders.TargetUtilization = s.scenarios.Sliders.TargetUtilization
	settings.Clamp.DemandMultiplier = [2]float64{MinDemandMultiplier, MaxDemandMultiplier}
	settings.Clamp.TargetUtilization = [2]float64{MinTargetUtilization, MaxTargetUtilization}

	for _, g := range []models.Granularity{models.GranularityDaily, models.GranularityWeekly} {
		plan, err := s.Plan(models.PlanRequest{Granularity: g})
		if err != nil {
			return nil, err
		}
		settings.Granularities[g] = GranularitySettings{
			Periods:         len(plan.Rows),
			DefaultCapacity: plan.DefaultCapacity,
			CapacityMax:     plan.CapacityMax,
		}
	}

	return settings, nil
}

var planSheetHeader = []interface{}{
	"Period", "Orders", "Revenue", "Baseline demand", "Adjusted demand",
	"Capacity", "Utilization", "Recommended capacity",
}

// ExportWorkbook 計画結果を.xlsx（Plan / Summary シート）として書き出す
func (s *SupplyPlanningService) ExportWorkbook(plan *models.PlanResponse, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Plan"); err != nil {
		return fmt.Errorf("シート名の設定に失敗: %w", err)
	}
	if err := f.SetSheetRow("Plan", "A1", &planSheetHeader); err != nil {
		return fmt.Errorf("ヘッダーの書き込みに失敗: %w", err)
	}

	for i, row := range plan.Rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Period, row.Orders, row.Revenue, row.BaselineDemand, row.AdjustedDemand,
			row.Capacity, row.Utilization, row.RecommendedCapacity,
		}
		if err := f.SetSheetRow("Plan", cellName, &values); err != nil {
			return fmt.Errorf("行の書き込みに失敗: %w", err)
		}
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return fmt.Errorf("シートの作成に失敗: %w", err)
	}
	summary := [][]interface{}{
		{"Granularity", string(plan.Granularity)},
		{"Capacity", plan.Parameters.Capacity},
		{"Demand multiplier", plan.Parameters.DemandMultiplier},
		{"Target utilization", plan.Parameters.TargetUtilization},
		{"Peak adjusted demand", plan.Summary.PeakAdjustedDemand},
		{"Average adjusted demand", plan.Summary.AverageAdjustedDemand},
		{"Peak utilization", plan.Summary.PeakUtilization},
		{"Average utilization", plan.Summary.AverageUtilization},
		{"Recommended capacity for peak", plan.Summary.RecommendedCapacityForPeak},
		{"Generated at", plan.GeneratedAt.Format(time.RFC3339)},
	}
	for i, values := range summary {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow("Summary", cellName, &values); err != nil {
			return fmt.Errorf("サマリーの書き込みに失敗: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("ワークブックの書き出しに失敗: %w", err)
	}
	return nil
}
