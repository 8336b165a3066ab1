package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/report"
	"github.com/transportresilience/rdr/internal/travel"
	"github.com/transportresilience/rdr/pkg/config"
)

const testYAML = `
analysis:
  roi_analysis_type: BCA
  start_year: 2020
  end_year: 2039
  base_year: 2020
  future_year: 2040
  dollar_year: 2020
  discount_factor: 0.07
  co2_discount_factor: 0.03
  maintenance: true
hazard:
  min_duration: 2
  max_duration: 4
  num_duration_cases: 2
  hazard_recov_type: percent
  hazard_recov_length: 0.5
damage:
  resil_mitigation_approach: manual
  exposure_damage_approach: default_table
  repair_cost_approach: default
  repair_time_approach: default
uncertainty:
  economic: [base]
  elasticities: [-0.5]
  frequency_factors: [1.0]
  hazard_events: [flood]
  projects: ["no", L1]
  project_groups: [G1]
inputs:
  hazard_levels: levels.csv
  links: links.csv
  projects: projects.csv
  project_links: project_links.csv
  project_groups: project_groups.csv
monetization:
  modes:
    car:
      value_of_time: 15
      operating_cost_per_mile: 0.5
      co2_cost_per_mile: 0.02
`

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var snaps strings.Builder
	snaps.WriteString("economic,project_group,project,elasticity,hazard,recovery_stage,year_type,mode,trips,miles,hours\n")
	for _, project := range []string{"no", "L1"} {
		for _, level := range []int{3, 1} {
			for _, yt := range []string{"base", "future"} {
				hours := 100
				if project == "L1" {
					hours = 80
				}
				fmt.Fprintf(&snaps, "base,G1,%s,-0.5,flood,%d,%s,car,1000,500,%d\n", project, level, yt, hours)
			}
		}
	}

	files := map[string]string{
		"config.yaml": testYAML,
		"levels.csv": "level,dimension1,dimension2,event,recovery_depth,start_year_probability,source_file\n" +
			"3,100yr,2030,flood,0,0.05,flood.csv\n" +
			"1,100yr,2030,flood,1,0.05,flood.csv\n",
		"links.csv":          "link_id,asset_type,length,lanes,facility_type\nA,road,1,2,1\n",
		"flood.csv":          "link_id,exposure\nA,3\n",
		"projects.csv":       "project,asset,cost,redeployment_cost,lifespan,annual_maintenance\nL1,levee,1000,0,20,10\n",
		"project_links.csv":  "project,link_id,exposure_reduction\nL1,A,99999\n",
		"project_groups.csv": "project_group,project\nG1,no\nG1,L1\n",
		"snapshots.csv":      snaps.String(),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	t.Setenv("RDR_STORE_PATH", filepath.Join(dir, "rdr.db"))
	t.Setenv("RDR_OUTPUT_DIR", filepath.Join(dir, "out"))
	return dir
}

func loadApp(t *testing.T, dir string) *App {
	t.Helper()
	cfg, err := config.NewYAMLProvider(filepath.Join(dir, "config.yaml")).LoadConfig()
	require.NoError(t, err)
	return New(cfg, zap.NewNop().Sugar())
}

func TestImportAndRun(t *testing.T) {
	dir := writeInputs(t)
	a := loadApp(t, dir)
	ctx := context.Background()

	n, err := a.ImportSnapshots(ctx, filepath.Join(dir, "snapshots.csv"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = a.ImportSnapshots(ctx, filepath.Join(dir, "snapshots.csv"))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, a.Run(ctx))

	runs, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	for _, name := range []string{report.DamageFile, report.ResultsFile, report.SummaryFile, "run.json"} {
		assert.FileExists(t, filepath.Join(dir, "out", runs[0].Name(), name))
	}
}

func TestRunWithoutSnapshots(t *testing.T) {
	dir := writeInputs(t)
	err := loadApp(t, dir).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, travel.ErrSnapshotNotFound))
}

func TestEnumerate(t *testing.T) {
	dir := writeInputs(t)
	path, err := loadApp(t, dir).Enumerate()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", report.ScenariosFile), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "id_resiliency_scenario,"))
	// at least one stage row per resiliency scenario
	assert.GreaterOrEqual(t, len(lines)-1, 4)
}
