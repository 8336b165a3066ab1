package config

import "time"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Source describes where the configuration came from, for diagnostics
	Source() string
}

// ConfigData represents the complete analysis configuration
type ConfigData struct {
	Analysis     AnalysisData     `json:"analysis"`
	Hazard       HazardData       `json:"hazard"`
	Damage       DamageData       `json:"damage"`
	Uncertainty  UncertaintyData  `json:"uncertainty"`
	Inputs       InputData        `json:"inputs"`
	Monetization MonetizationData `json:"monetization"`
	Travel       TravelData       `json:"travel"`
	Runtime      RuntimeData      `json:"-"`
}

// Analysis types
const (
	AnalysisBCA       = "BCA"
	AnalysisBreakeven = "Breakeven"
	AnalysisRegret    = "Regret"
)

// AnalysisData holds the horizon, discounting and cost-recognition settings
type AnalysisData struct {
	ROIAnalysisType   string  `json:"roi_analysis_type" validate:"required,oneof=BCA Breakeven Regret"`
	StartYear         int     `json:"start_year" validate:"required"`
	EndYear           int     `json:"end_year" validate:"required,gtefield=StartYear"`
	BaseYear          int     `json:"base_year" validate:"required"`
	FutureYear        int     `json:"future_year" validate:"required,nefield=BaseYear"`
	DollarYear        int     `json:"dollar_year" validate:"required"`
	DiscountFactor    float64 `json:"discount_factor" validate:"gte=0,lt=1"`
	CO2DiscountFactor float64 `json:"co2_discount_factor" validate:"gte=0,lt=1"`
	Maintenance       bool    `json:"maintenance"`
	Redeployment      bool    `json:"redeployment"`
}

// Recovery policies
const (
	RecoveryDays    = "days"
	RecoveryPercent = "percent"
)

// HazardData holds the recovery-path sampling settings
type HazardData struct {
	MinDuration          int     `json:"min_duration" validate:"gte=1"`
	MaxDuration          int     `json:"max_duration" validate:"gtefield=MinDuration"`
	NumDurationCases     int     `json:"num_duration_cases" validate:"gte=1"`
	HazardRecovType      string  `json:"hazard_recov_type" validate:"required,oneof=days percent"`
	HazardRecovLength    float64 `json:"hazard_recov_length" validate:"gte=0"`
	HazardRecovPathModel string  `json:"hazard_recov_path_model" validate:"required,oneof=equal"`
	ExposureUnit         string  `json:"exposure_unit" validate:"required,oneof=feet meters inches centimeters"`
}

// Damage approaches
const (
	MitigationBinary     = "binary"
	MitigationManual     = "manual"
	ExposureBinary       = "binary"
	ExposureDefaultTable = "default_table"
	ExposureManual       = "manual"
	TableDefault         = "default"
	TableUserDefined     = "user-defined"
	MissingZeroFill      = "zero_fill"
	MissingFail          = "fail"
)

// DamageData selects the damage, repair and missing-data models
type DamageData struct {
	ResilMitigationApproach string `json:"resil_mitigation_approach" validate:"required,oneof=binary manual"`
	ExposureDamageApproach  string `json:"exposure_damage_approach" validate:"required,oneof=binary default_table manual"`
	RepairCostApproach      string `json:"repair_cost_approach" validate:"required,oneof=default user-defined"`
	RepairTimeApproach      string `json:"repair_time_approach" validate:"required,oneof=default user-defined"`
	MissingDataPolicy       string `json:"missing_data_policy" validate:"required,oneof=zero_fill fail"`
}

// UncertaintyData lists the dimensions of the scenario space
type UncertaintyData struct {
	Economic         []string  `json:"economic" validate:"required,min=1,unique,dive,required"`
	Elasticities     []float64 `json:"elasticities" validate:"required,min=1,unique"`
	FrequencyFactors []float64 `json:"frequency_factors" validate:"required,min=1,unique,dive,gt=0"`
	HazardEvents     []string  `json:"hazard_events" validate:"required,min=1,unique,dive,required"`
	Projects         []string  `json:"projects" validate:"required,min=1,unique,baseline"`
	ProjectGroups    []string  `json:"project_groups" validate:"required,min=1,unique,dive,required"`
}

// InputData names the static tables. Relative paths resolve against Dir.
type InputData struct {
	Dir            string `json:"dir"`
	HazardLevels   string `json:"hazard_levels" validate:"required"`
	Links          string `json:"links" validate:"required"`
	Projects       string `json:"projects" validate:"required"`
	ProjectLinks   string `json:"project_links" validate:"required"`
	ProjectGroups  string `json:"project_groups" validate:"required"`
	ExposureDamage string `json:"exposure_damage,omitempty"`
	RepairCost     string `json:"repair_cost,omitempty"`
	RepairTime     string `json:"repair_time,omitempty"`
}

// ModeRates holds per-unit monetization rates of one travel mode
type ModeRates struct {
	ValueOfTime          float64 `json:"value_of_time" validate:"gte=0"`
	OperatingCostPerMile float64 `json:"operating_cost_per_mile" validate:"gte=0"`
	SafetyCostPerMile    float64 `json:"safety_cost_per_mile" validate:"gte=0"`
	NoiseCostPerMile     float64 `json:"noise_cost_per_mile" validate:"gte=0"`
	CO2CostPerMile       float64 `json:"co2_cost_per_mile" validate:"gte=0"`
}

// MonetizationData maps mode names to their rates
type MonetizationData struct {
	Modes map[string]ModeRates `json:"modes" validate:"required,min=1,dive"`
}

// Travel metric providers
const (
	TravelProviderStore   = "store"
	TravelProviderCommand = "command"
)

// TravelData configures the external travel metrics provider
type TravelData struct {
	Provider string        `json:"provider" validate:"required,oneof=store command"`
	Command  []string      `json:"command,omitempty"`
	Timeout  time.Duration `json:"timeout"`
}

// Output formats
const (
	OutputJSON    = "json"
	OutputMsgpack = "msgpack"
)

// RuntimeData holds settings that do not change results and therefore are
// excluded from the configuration fingerprint.
type RuntimeData struct {
	StorePath    string `envconfig:"STORE_PATH"`
	OutputDir    string `envconfig:"OUTPUT_DIR"`
	OutputFormat string `envconfig:"OUTPUT_FORMAT" validate:"omitempty,oneof=json msgpack"`
	Workers      int    `envconfig:"WORKERS" validate:"gte=0"`
	LogFile      string `envconfig:"LOG_FILE"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN"`
}
