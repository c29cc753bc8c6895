package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultScenarioFile シナリオ設定ファイルの既定パス
const DefaultScenarioFile = "configs/planning_scenarios.yaml"

// SliderRange UIスライダーの範囲
type SliderRange struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step" json:"step"`
}

// PlanningScenario what-ifシナリオのプリセット
type PlanningScenario struct {
	Name              string  `yaml:"name" json:"name"`
	Description       string  `yaml:"description" json:"description"`
	DemandMultiplier  float64 `yaml:"demand_multiplier" json:"demand_multiplier"`
	TargetUtilization float64 `yaml:"target_utilization" json:"target_utilization"`
}

// ScenarioConfig はplanning_scenarios.yamlの構造を定義
type ScenarioConfig struct {
	Defaults struct {
		Granularity       string  `yaml:"granularity"`
		DemandMultiplier  float64 `yaml:"demand_multiplier"`
		TargetUtilization float64 `yaml:"target_utilization"`
	} `yaml:"defaults"`

	Sliders struct {
		DemandMultiplier  SliderRange `yaml:"demand_multiplier"`
		TargetUtilization SliderRange `yaml:"target_utilization"`
	} `yaml:"sliders"`

	Scenarios []PlanningScenario `yaml:"scenarios"`
}

// DefaultScenarioConfig ファイルが無い場合の組み込み設定
func DefaultScenarioConfig() *ScenarioConfig {
	var c ScenarioConfig
	c.Defaults.Granularity = "daily"
	c.Defaults.DemandMultiplier = 1
	c.Defaults.TargetUtilization = 0.8
	c.Sliders.DemandMultiplier = SliderRange{Min: 0.8, Max: 1.5, Step: 0.05}
	c.Sliders.TargetUtilization = SliderRange{Min: 0.6, Max: 0.95, Step: 0.01}
	c.Scenarios = []PlanningScenario{
		{Name: "baseline", Description: "過去実績そのまま", DemandMultiplier: 1, TargetUtilization: 0.8},
	}
	return &c
}

// LoadScenarioConfig シナリオ設定を読み込む。ファイルが存在しない場合は組み込み設定を返す
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	if path == "" {
		path = DefaultScenarioFile
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultScenarioConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("シナリオ設定ファイルの読み込みに失敗: %w", err)
	}

	return ParseScenarioConfig(data)
}

// ParseScenarioConfig YAMLからシナリオ設定を生成し、欠けている値を既定値で補う
func ParseScenarioConfig(data []byte) (*ScenarioConfig, error) {
	config := DefaultScenarioConfig()
	config.Scenarios = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}

	defaults := DefaultScenarioConfig()
	if config.Defaults.Granularity == "" {
		config.Defaults.Granularity = defaults.Defaults.Granularity
	}
	if config.Defaults.DemandMultiplier <= 0 {
		config.Defaults.DemandMultiplier = defaults.Defaults.DemandMultiplier
	}
	if config.Defaults.TargetUtilization <= 0 {
		config.Defaults.TargetUtilization = defaults.Defaults.TargetUtilization
	}
	if len(config.Scenarios) == 0 {
		config.Scenarios = defaults.Scenarios
	}

	return config, nil
}

// FindScenario 名前でシナリオを検索
func (c *ScenarioConfig) FindScenario(name string) (PlanningScenario, bool) {
	for _, s := range c.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return PlanningScenario{}, false
}
