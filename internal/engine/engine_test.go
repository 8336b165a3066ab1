package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/storage/sqlite"
	"github.com/transportresilience/rdr/internal/travel"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/config"
)

func writeTables(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"levels.csv": "level,dimension1,dimension2,event,recovery_depth,start_year_probability,source_file\n" +
			"3,100yr,2030,flood,0,0.1,flood.csv\n" +
			"1,100yr,2030,flood,1,0.1,flood.csv\n",
		"links.csv": "link_id,asset_type,length,lanes,facility_type\n" +
			"A,road,1,2,1\n" +
			"B,bridge,0.1,2,1\n",
		"flood.csv": "link_id,exposure\nA,3\nB,6\n",
		"projects.csv": "project,asset,cost,redeployment_cost,lifespan,annual_maintenance\n" +
			"L1,levee,1000,0,20,0\n",
		"project_links.csv":  "project,link_id,exposure_reduction\nL1,A,99999\n",
		"project_groups.csv": "project_group,project\nG1,no\nG1,L1\nG1,X9\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func testConfig(dir string) *config.ConfigData {
	cfg := &config.ConfigData{
		Analysis: config.AnalysisData{
			ROIAnalysisType:   config.AnalysisBCA,
			StartYear:         2020,
			EndYear:           2029,
			BaseYear:          2020,
			FutureYear:        2030,
			DollarYear:        2020,
			DiscountFactor:    0.07,
			CO2DiscountFactor: 0.03,
		},
		Hazard: config.HazardData{
			MinDuration:       2,
			MaxDuration:       4,
			NumDurationCases:  2,
			HazardRecovType:   config.RecoveryDays,
			HazardRecovLength: 1,
		},
		Damage: config.DamageData{
			ResilMitigationApproach: config.MitigationManual,
			ExposureDamageApproach:  config.ExposureDefaultTable,
			RepairCostApproach:      config.TableDefault,
			RepairTimeApproach:      config.TableDefault,
		},
		Uncertainty: config.UncertaintyData{
			Economic:         []string{"base"},
			Elasticities:     []float64{-0.5},
			FrequencyFactors: []float64{1},
			HazardEvents:     []string{"flood"},
			Projects:         []string{"no", "L1"},
			ProjectGroups:    []string{"G1"},
		},
		Inputs: config.InputData{
			Dir:           dir,
			HazardLevels:  "levels.csv",
			Links:         "links.csv",
			Projects:      "projects.csv",
			ProjectLinks:  "project_links.csv",
			ProjectGroups: "project_groups.csv",
		},
		Monetization: config.MonetizationData{Modes: map[string]config.ModeRates{
			"car": {ValueOfTime: 15, OperatingCostPerMile: 0.5},
		}},
		Runtime: config.RuntimeData{Workers: 2},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

// fakeProvider returns fewer vehicle hours for the project than for the
// baseline, and fails for any project listed in fail.
type fakeProvider struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (p *fakeProvider) Snapshot(_ context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	p.calls.Add(1)
	if p.fail[key.Project] {
		return types.Snapshot{}, travel.NotFound(key, yt)
	}
	hours := 100.0
	if key.RecoveryStage == 1 {
		hours = 50
	}
	if key.Project != constants.BaselineProject {
		hours -= 20
	}
	return types.Snapshot{Key: key, YearType: yt, Modes: map[types.Mode]types.ModeMetrics{
		types.ModeCar: {Trips: 1000, Miles: 500, Hours: hours},
	}}, nil
}

func newTestEngine(t *testing.T, cfg *config.ConfigData, store Store, provider travel.Provider) *Engine {
	t.Helper()
	in, err := LoadInputs(cfg)
	require.NoError(t, err)
	e, err := New(cfg, in, store, provider, zap.NewNop().Sugar())
	require.NoError(t, err)
	return e
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "rdr.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnumerate(t *testing.T) {
	cfg := testConfig(writeTables(t))
	e := newTestEngine(t, cfg, openStore(t), &fakeProvider{})

	space, err := e.Enumerate()
	require.NoError(t, err)
	assert.Len(t, space.Uncertainty, 2)
	assert.Len(t, space.Resiliency, 4)
	assert.Equal(t, 1, space.Warnings)

	for _, rs := range space.Resiliency {
		days := 0
		for _, st := range rs.Stages {
			days += st.Days
		}
		assert.Equal(t, rs.Variant.Total(), days)
	}
}

func TestRunCompletes(t *testing.T) {
	cfg := testConfig(writeTables(t))
	store := openStore(t)
	e := newTestEngine(t, cfg, store, &fakeProvider{})

	out, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.RunCompleted, out.Run.Status)
	assert.Equal(t, 1, out.Run.Diagnostics.SkippedProjects)
	require.Len(t, out.Results, 4)
	require.Len(t, out.Summary, 2)

	for _, r := range out.Results {
		if r.Scenario.IsBaseline() {
			assert.Equal(t, r.Scenario.IDResiliencyScenario, r.Scenario.BaselineID)
			assert.Zero(t, r.NetBenefit)
			assert.False(t, r.BCR.Valid)
			continue
		}
		assert.Greater(t, r.Benefits.TravelTime, 0.0)
		assert.Greater(t, r.Benefits.Repair, 0.0)
		assert.True(t, r.BCR.Valid)
		assert.NotEmpty(t, r.Damage)
	}

	ranks := make(map[string]int)
	for _, s := range out.Summary {
		ranks[s.Project] = s.RegretAll
	}
	assert.Equal(t, map[string]int{"L1": 1, "no": 2}, ranks)

	stored, err := store.Run(context.Background(), out.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunCompleted, stored.Status)

	summary, err := store.Summary(context.Background(), out.Run.ID)
	require.NoError(t, err)
	assert.Len(t, summary, 2)
}

func TestRunFailureThenResume(t *testing.T) {
	cfg := testConfig(writeTables(t))
	store := openStore(t)
	ctx := context.Background()

	failing := &fakeProvider{fail: map[string]bool{"L1": true}}
	_, err := newTestEngine(t, cfg, store, failing).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, travel.ErrSnapshotNotFound))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.RunFailed, runs[0].Status)

	done, err := store.CompletedScenarios(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, done, 2, "baseline scenarios are kept")

	provider := &fakeProvider{}
	out, err := newTestEngine(t, cfg, store, provider).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, out.Run.ID)
	assert.Len(t, out.Results, 4)

	// only the two project scenarios are evaluated again, each fetching its
	// own stages and its baseline's for both modeled years
	assert.Equal(t, int32(2*2*2*2), provider.calls.Load())
}

// completedStore reports every scenario of the run as already stored
type completedStore struct {
	*sqlite.Store
	ids map[int]bool
}

func (s completedStore) CompletedScenarios(context.Context, string) (map[int]bool, error) {
	return s.ids, nil
}

func TestResumeLogsFailedReestimate(t *testing.T) {
	dir := writeTables(t)
	// C has no exposure row, which the fail policy rejects
	links := "link_id,asset_type,length,lanes,facility_type\nA,road,1,2,1\nB,bridge,0.1,2,1\nC,road,1,2,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "links.csv"), []byte(links), 0o644))
	cfg := testConfig(dir)
	cfg.Damage.MissingDataPolicy = config.MissingFail

	in, err := LoadInputs(cfg)
	require.NoError(t, err)
	core, logs := observer.New(zap.WarnLevel)
	store := completedStore{Store: openStore(t), ids: make(map[int]bool)}
	e, err := New(cfg, in, store, &fakeProvider{}, zap.New(core).Sugar())
	require.NoError(t, err)

	space, err := e.Enumerate()
	require.NoError(t, err)
	for _, rs := range space.Resiliency {
		store.ids[rs.IDResiliencyScenario] = true
	}

	out, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, out.Run.Diagnostics.MissingExposure)

	failed := logs.FilterMessage("damage re-estimate failed on resume").All()
	require.Len(t, failed, len(space.Resiliency))
	for _, entry := range failed {
		assert.Equal(t, out.Run.ID, entry.ContextMap()["run"])
		assert.Contains(t, entry.ContextMap(), "error")
	}
}

func TestRegretAnalysis(t *testing.T) {
	cfg := testConfig(writeTables(t))
	cfg.Analysis.ROIAnalysisType = config.AnalysisRegret
	out, err := newTestEngine(t, cfg, openStore(t), &fakeProvider{}).Run(context.Background())
	require.NoError(t, err)

	for _, r := range out.Results {
		assert.Equal(t, types.Float(0), r.BCR)
		assert.Zero(t, r.PVCapital)
	}
	for _, s := range out.Summary {
		assert.NotZero(t, s.RegretAll)
		assert.NotZero(t, s.RegretScenario)
		assert.NotZero(t, s.RegretAsset)
	}
}

func TestRunID(t *testing.T) {
	assert.Equal(t, RunID("f", "d"), RunID("f", "d"))
	assert.NotEqual(t, RunID("f", "d"), RunID("f", "e"))
}

func TestLoadInputs(t *testing.T) {
	dir := writeTables(t)

	cfg := testConfig(dir)
	cfg.Hazard.ExposureUnit = "meters"
	in, err := LoadInputs(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 3*3.280839895, in.Damage.Events["flood"].Exposure["A"], 1e-9)
	assert.InDelta(t, 3.280839895, in.Damage.Events["flood"].Depths[1], 1e-9)
	assert.Equal(t, 0.1, in.Probability["flood"])
	assert.Equal(t, []int{3, 1}, in.Events[0].Levels)
	assert.NotEmpty(t, in.Digest)

	cfg = testConfig(dir)
	cfg.Uncertainty.HazardEvents = []string{"surge"}
	_, err = LoadInputs(cfg)
	assert.ErrorContains(t, err, "surge")

	cfg = testConfig(dir)
	cfg.Uncertainty.Projects = []string{"no", "L2"}
	_, err = LoadInputs(cfg)
	assert.ErrorContains(t, err, "L2")
}
