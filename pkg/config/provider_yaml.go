package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// Source returns the configuration file path
func (y *YAMLProvider) Source() string {
	return y.filename
}

// LoadConfig loads the configuration from the YAML file, applies defaults and
// environment overrides, and validates the result. Invalid enum values are
// rejected here, before any scenario is computed.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, &ConfigError{Type: ErrTypeRead, Message: y.filename, Err: err}
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	// Input paths are relative to the config file unless absolute
	if config.Inputs.Dir == "" {
		config.Inputs.Dir = filepath.Dir(y.filename)
	} else if !filepath.IsAbs(config.Inputs.Dir) {
		config.Inputs.Dir = filepath.Join(filepath.Dir(y.filename), config.Inputs.Dir)
	}

	if err := ApplyEnvironment(config); err != nil {
		return nil, err
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// ParseYAML converts raw YAML into ConfigData with defaults applied. It does
// not validate.
func ParseYAML(b []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(b, &yamlConfig); err != nil {
		return nil, &ConfigError{Type: ErrTypeParse, Message: "invalid YAML", Err: err}
	}

	config := &ConfigData{
		Analysis: AnalysisData{
			ROIAnalysisType:   yamlConfig.Analysis.ROIAnalysisType,
			StartYear:         yamlConfig.Analysis.StartYear,
			EndYear:           yamlConfig.Analysis.EndYear,
			BaseYear:          yamlConfig.Analysis.BaseYear,
			FutureYear:        yamlConfig.Analysis.FutureYear,
			DollarYear:        yamlConfig.Analysis.DollarYear,
			DiscountFactor:    yamlConfig.Analysis.DiscountFactor,
			CO2DiscountFactor: yamlConfig.Analysis.CO2DiscountFactor,
			Maintenance:       yamlConfig.Analysis.Maintenance,
			Redeployment:      yamlConfig.Analysis.Redeployment,
		},
		Hazard: HazardData{
			MinDuration:          yamlConfig.Hazard.MinDuration,
			MaxDuration:          yamlConfig.Hazard.MaxDuration,
			NumDurationCases:     yamlConfig.Hazard.NumDurationCases,
			HazardRecovType:      yamlConfig.Hazard.HazardRecovType,
			HazardRecovLength:    yamlConfig.Hazard.HazardRecovLength,
			HazardRecovPathModel: yamlConfig.Hazard.HazardRecovPathModel,
			ExposureUnit:         yamlConfig.Hazard.ExposureUnit,
		},
		Damage: DamageData{
			ResilMitigationApproach: yamlConfig.Damage.ResilMitigationApproach,
			ExposureDamageApproach:  yamlConfig.Damage.ExposureDamageApproach,
			RepairCostApproach:      yamlConfig.Damage.RepairCostApproach,
			RepairTimeApproach:      yamlConfig.Damage.RepairTimeApproach,
			MissingDataPolicy:       yamlConfig.Damage.MissingDataPolicy,
		},
		Uncertainty: UncertaintyData{
			Economic:         yamlConfig.Uncertainty.Economic,
			Elasticities:     yamlConfig.Uncertainty.Elasticities,
			FrequencyFactors: yamlConfig.Uncertainty.FrequencyFactors,
			HazardEvents:     yamlConfig.Uncertainty.HazardEvents,
			Projects:         yamlConfig.Uncertainty.Projects,
			ProjectGroups:    yamlConfig.Uncertainty.ProjectGroups,
		},
		Inputs: InputData{
			Dir:            yamlConfig.Inputs.Dir,
			HazardLevels:   yamlConfig.Inputs.HazardLevels,
			Links:          yamlConfig.Inputs.Links,
			Projects:       yamlConfig.Inputs.Projects,
			ProjectLinks:   yamlConfig.Inputs.ProjectLinks,
			ProjectGroups:  yamlConfig.Inputs.ProjectGroups,
			ExposureDamage: yamlConfig.Inputs.ExposureDamage,
			RepairCost:     yamlConfig.Inputs.RepairCost,
			RepairTime:     yamlConfig.Inputs.RepairTime,
		},
		Monetization: MonetizationData{
			Modes: make(map[string]ModeRates, len(yamlConfig.Monetization.Modes)),
		},
		Travel: TravelData{
			Provider: yamlConfig.Travel.Provider,
			Command:  yamlConfig.Travel.Command,
		},
		Runtime: RuntimeData{
			StorePath:    yamlConfig.Runtime.StorePath,
			OutputDir:    yamlConfig.Runtime.OutputDir,
			OutputFormat: yamlConfig.Runtime.OutputFormat,
			Workers:      yamlConfig.Runtime.Workers,
			LogFile:      yamlConfig.Runtime.LogFile,
			PostgresDSN:  yamlConfig.Runtime.PostgresDSN,
		},
	}

	for name, rates := range yamlConfig.Monetization.Modes {
		config.Monetization.Modes[name] = ModeRates{
			ValueOfTime:          rates.ValueOfTime,
			OperatingCostPerMile: rates.OperatingCostPerMile,
			SafetyCostPerMile:    rates.SafetyCostPerMile,
			NoiseCostPerMile:     rates.NoiseCostPerMile,
			CO2CostPerMile:       rates.CO2CostPerMile,
		}
	}

	if yamlConfig.Travel.Timeout != "" {
		timeout, err := time.ParseDuration(yamlConfig.Travel.Timeout)
		if err != nil {
			return nil, &ConfigError{Type: ErrTypeParse, Message: fmt.Sprintf("travel.timeout %q", yamlConfig.Travel.Timeout), Err: err}
		}
		config.Travel.Timeout = timeout
	}

	ApplyDefaults(config)
	return config, nil
}

// YAML-specific structs with YAML tags matching the documented option names
type ConfigYAML struct {
	Analysis     AnalysisYAML     `yaml:"analysis"`
	Hazard       HazardYAML       `yaml:"hazard"`
	Damage       DamageYAML       `yaml:"damage"`
	Uncertainty  UncertaintyYAML  `yaml:"uncertainty"`
	Inputs       InputYAML        `yaml:"inputs"`
	Monetization MonetizationYAML `yaml:"monetization"`
	Travel       TravelYAML       `yaml:"travel,omitempty"`
	Runtime      RuntimeYAML      `yaml:"runtime,omitempty"`
}

type AnalysisYAML struct {
	ROIAnalysisType   string  `yaml:"roi_analysis_type"`
	StartYear         int     `yaml:"start_year"`
	EndYear           int     `yaml:"end_year"`
	BaseYear          int     `yaml:"base_year"`
	FutureYear        int     `yaml:"future_year"`
	DollarYear        int     `yaml:"dollar_year"`
	DiscountFactor    float64 `yaml:"discount_factor"`
	CO2DiscountFactor float64 `yaml:"co2_discount_factor"`
	Maintenance       bool    `yaml:"maintenance"`
	Redeployment      bool    `yaml:"redeployment"`
}

type HazardYAML struct {
	MinDuration          int     `yaml:"min_duration"`
	MaxDuration          int     `yaml:"max_duration"`
	NumDurationCases     int     `yaml:"num_duration_cases"`
	HazardRecovType      string  `yaml:"hazard_recov_type"`
	HazardRecovLength    float64 `yaml:"hazard_recov_length"`
	HazardRecovPathModel string  `yaml:"hazard_recov_path_model,omitempty"`
	ExposureUnit         string  `yaml:"exposure_unit,omitempty"`
}

type DamageYAML struct {
	ResilMitigationApproach string `yaml:"resil_mitigation_approach"`
	ExposureDamageApproach  string `yaml:"exposure_damage_approach"`
	RepairCostApproach      string `yaml:"repair_cost_approach"`
	RepairTimeApproach      string `yaml:"repair_time_approach"`
	MissingDataPolicy       string `yaml:"missing_data_policy,omitempty"`
}

type UncertaintyYAML struct {
	Economic         []string  `yaml:"economic"`
	Elasticities     []float64 `yaml:"elasticities"`
	FrequencyFactors []float64 `yaml:"frequency_factors"`
	HazardEvents     []string  `yaml:"hazard_events"`
	Projects         []string  `yaml:"projects"`
	ProjectGroups    []string  `yaml:"project_groups"`
}

type InputYAML struct {
	Dir            string `yaml:"dir,omitempty"`
	HazardLevels   string `yaml:"hazard_levels"`
	Links          string `yaml:"links"`
	Projects       string `yaml:"projects"`
	ProjectLinks   string `yaml:"project_links"`
	ProjectGroups  string `yaml:"project_groups"`
	ExposureDamage string `yaml:"exposure_damage,omitempty"`
	RepairCost     string `yaml:"repair_cost,omitempty"`
	RepairTime     string `yaml:"repair_time,omitempty"`
}

type ModeRatesYAML struct {
	ValueOfTime          float64 `yaml:"value_of_time"`
	OperatingCostPerMile float64 `yaml:"operating_cost_per_mile"`
	SafetyCostPerMile    float64 `yaml:"safety_cost_per_mile"`
	NoiseCostPerMile     float64 `yaml:"noise_cost_per_mile"`
	CO2CostPerMile       float64 `yaml:"co2_cost_per_mile"`
}

type MonetizationYAML struct {
	Modes map[string]ModeRatesYAML `yaml:"modes"`
}

type TravelYAML struct {
	Provider string   `yaml:"provider,omitempty"`
	Command  []string `yaml:"command,omitempty"`
	Timeout  string   `yaml:"timeout,omitempty"`
}

type RuntimeYAML struct {
	StorePath    string `yaml:"store_path,omitempty"`
	OutputDir    string `yaml:"output_dir,omitempty"`
	OutputFormat string `yaml:"output_format,omitempty"`
	Workers      int    `yaml:"workers,omitempty"`
	LogFile      string `yaml:"log_file,omitempty"`
	PostgresDSN  string `yaml:"postgres_dsn,omitempty"`
}
