package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transportresilience/rdr/internal/constants"
)

const validYAML = `
analysis:
  roi_analysis_type: BCA
  start_year: 2020
  end_year: 2049
  base_year: 2020
  future_year: 2050
  dollar_year: 2020
  discount_factor: 0.07
  co2_discount_factor: 0.03
hazard:
  min_duration: 2
  max_duration: 10
  num_duration_cases: 3
  hazard_recov_type: days
  hazard_recov_length: 5
damage:
  resil_mitigation_approach: binary
  exposure_damage_approach: default_table
  repair_cost_approach: default
  repair_time_approach: default
uncertainty:
  economic: [base, high]
  elasticities: [0, -0.5]
  frequency_factors: [1.0]
  hazard_events: [flood]
  projects: ["no", L1]
  project_groups: [G1]
inputs:
  dir: data
  hazard_levels: levels.csv
  links: links.csv
  projects: projects.csv
  project_links: project_links.csv
  project_groups: project_groups.csv
monetization:
  modes:
    car:
      value_of_time: 15
travel:
  timeout: 90s
`

func parseValid(t *testing.T) *ConfigData {
	t.Helper()
	c, err := ParseYAML([]byte(validYAML))
	require.NoError(t, err)
	return c
}

func TestParseYAMLDefaults(t *testing.T) {
	c := parseValid(t)
	require.NoError(t, Validate(c))

	assert.Equal(t, "equal", c.Hazard.HazardRecovPathModel)
	assert.Equal(t, "feet", c.Hazard.ExposureUnit)
	assert.Equal(t, MissingZeroFill, c.Damage.MissingDataPolicy)
	assert.Equal(t, TravelProviderStore, c.Travel.Provider)
	assert.Equal(t, 90*time.Second, c.Travel.Timeout)
	assert.Equal(t, constants.DefaultStorePath, c.Runtime.StorePath)
	assert.Equal(t, OutputJSON, c.Runtime.OutputFormat)
	assert.Equal(t, constants.DefaultWorkers, c.Runtime.Workers)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", validYAML + "bogus: 1\n"},
		{"bad timeout", strings.Replace(validYAML, "timeout: 90s", "timeout: soon", 1)},
		{"not yaml", "analysis: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml))
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, ErrTypeParse, cerr.Type)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ConfigData)
		field  string
	}{
		{"bad analysis type", func(c *ConfigData) { c.Analysis.ROIAnalysisType = "NPV" }, "Analysis.ROIAnalysisType"},
		{"end before start", func(c *ConfigData) { c.Analysis.EndYear = 2010 }, "Analysis.EndYear"},
		{"future equals base", func(c *ConfigData) { c.Analysis.FutureYear = 2020 }, "Analysis.FutureYear"},
		{"discount factor one", func(c *ConfigData) { c.Analysis.DiscountFactor = 1 }, "Analysis.DiscountFactor"},
		{"max below min", func(c *ConfigData) { c.Hazard.MaxDuration = 1 }, "Hazard.MaxDuration"},
		{"bad recovery type", func(c *ConfigData) { c.Hazard.HazardRecovType = "weeks" }, "Hazard.HazardRecovType"},
		{"fractional days", func(c *ConfigData) { c.Hazard.HazardRecovLength = 2.5 }, "Hazard.HazardRecovLength"},
		{"bad exposure unit", func(c *ConfigData) { c.Hazard.ExposureUnit = "yards" }, "Hazard.ExposureUnit"},
		{"bad mitigation", func(c *ConfigData) { c.Damage.ResilMitigationApproach = "full" }, "Damage.ResilMitigationApproach"},
		{"manual table missing", func(c *ConfigData) { c.Damage.ExposureDamageApproach = ExposureManual }, "Inputs.ExposureDamage"},
		{"user repair cost missing", func(c *ConfigData) { c.Damage.RepairCostApproach = TableUserDefined }, "Inputs.RepairCost"},
		{"no baseline", func(c *ConfigData) { c.Uncertainty.Projects = []string{"L1"} }, "Uncertainty.Projects"},
		{"duplicate economic", func(c *ConfigData) { c.Uncertainty.Economic = []string{"base", "base"} }, "Uncertainty.Economic"},
		{"zero frequency", func(c *ConfigData) { c.Uncertainty.FrequencyFactors = []float64{0} }, "Uncertainty.FrequencyFactors"},
		{"unknown mode", func(c *ConfigData) { c.Monetization.Modes["ferry"] = ModeRates{} }, "Monetization.Modes"},
		{"command without argv", func(c *ConfigData) { c.Travel.Provider = TravelProviderCommand }, "Travel.Command"},
		{"bad output format", func(c *ConfigData) { c.Runtime.OutputFormat = "xml" }, "Runtime.OutputFormat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parseValid(t)
			tt.mutate(c)
			err := Validate(c)
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "expected a ConfigError, got %v", err)
			assert.Equal(t, ErrTypeValidation, cerr.Type)
			assert.Contains(t, cerr.Message, tt.field)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	t.Setenv("RDR_WORKERS", "9")
	t.Setenv("RDR_OUTPUT_FORMAT", "msgpack")

	p := NewYAMLProvider(path)
	c, err := p.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data"), c.Inputs.Dir)
	assert.Equal(t, 9, c.Runtime.Workers)
	assert.Equal(t, OutputMsgpack, c.Runtime.OutputFormat)
	assert.Equal(t, path, p.Source())

	again, err := p.LoadConfig()
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml")).LoadConfig()
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrTypeRead, cerr.Type)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadConfigBadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))
	t.Setenv("RDR_WORKERS", "many")

	_, err := NewYAMLProvider(path).LoadConfig()
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrTypeEnv, cerr.Type)
}

func TestExampleConfig(t *testing.T) {
	c, err := NewYAMLProvider(filepath.Join("..", "..", "config.example.yaml")).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, RecoveryDays, c.Hazard.HazardRecovType)
	assert.Equal(t, 7.0, c.Hazard.HazardRecovLength)

	// percent lengths are fractions of the plateau
	percent := strings.Replace(validYAML, "hazard_recov_type: days\n  hazard_recov_length: 5", "hazard_recov_type: percent\n  hazard_recov_length: 0.5", 1)
	c, err = ParseYAML([]byte(percent))
	require.NoError(t, err)
	assert.Equal(t, RecoveryPercent, c.Hazard.HazardRecovType)
	assert.Equal(t, 0.5, c.Hazard.HazardRecovLength)
}

func TestFingerprint(t *testing.T) {
	a := parseValid(t)
	b := parseValid(t)
	b.Inputs.Dir = "/elsewhere"
	b.Runtime.Workers = 32

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Equal(t, "data", a.Inputs.Dir)

	b.Analysis.DiscountFactor = 0.03
	fc, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}
