package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/scenario"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/responseformat"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func testResults() []types.BenefitCostResult {
	return []types.BenefitCostResult{{
		Scenario: types.ResiliencyScenario{
			UncertaintyScenario: types.UncertaintyScenario{Economic: "base", HazardEvent: "flood", IDScenarioNoHazard: 1, IDUncertaintyScenario: 1},
			ProjectGroup:        "G1", Project: "no", IDResiliencyScenario: 1, BaselineID: 1,
		},
		Damage: []types.DamageRecord{
			{Stage: 1, HazardLevel: 3, StageDays: 2, DamageFraction: types.Float(0.5)},
			{Stage: 2, HazardLevel: 1, StageDays: 1},
		},
	}}
}

func TestWriteRun(t *testing.T) {
	w := NewWriter(t.TempDir(), responseformat.FormatJSON, zap.NewNop().Sugar())
	run := types.Run{ID: "abc", Status: types.RunCompleted}
	summary := []types.RankedSummary{{Project: "no", ProjectGroup: "G1", RegretAll: 1}}

	dir, err := w.WriteRun(run, testResults(), summary)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Dir, "abc"), dir)

	damage := readCSV(t, filepath.Join(dir, DamageFile))
	require.Len(t, damage, 3)
	assert.Equal(t, damageHeader, damage[0])
	assert.Equal(t, "0.5", damage[1][8])
	assert.Equal(t, types.NotApplicable, damage[2][8])

	results := readCSV(t, filepath.Join(dir, ResultsFile))
	require.Len(t, results, 2)
	assert.Equal(t, types.NotApplicable, results[1][25])

	rows := readCSV(t, filepath.Join(dir, SummaryFile))
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[1][11])

	b, err := os.ReadFile(filepath.Join(dir, "run.json"))
	require.NoError(t, err)
	var doc RunDocument
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "abc", doc.Run.ID)
	assert.False(t, doc.Results[0].Damage[1].DamageFraction.Valid)
}

func TestWriteRunMsgpack(t *testing.T) {
	w := NewWriter(t.TempDir(), responseformat.FormatMsgpack, zap.NewNop().Sugar())
	dir, err := w.WriteRun(types.Run{ID: "abc"}, testResults(), nil)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "run.msgpack"))
	require.NoError(t, err)
	var doc RunDocument
	require.NoError(t, responseformat.UnmarshalMsgpack(b, &doc))
	assert.Equal(t, testResults()[0].Damage, doc.Results[0].Damage)
}

func TestWriteScenarios(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "out"), responseformat.FormatJSON, zap.NewNop().Sugar())
	space := &scenario.Space{Resiliency: []types.ResiliencyScenario{
		{Project: "no", IDResiliencyScenario: 1, BaselineID: 1, Stages: []types.Stage{{Stage: 1, HazardLevel: 3, Days: 2}, {Stage: 2, HazardLevel: 1, Days: 1}}},
		{Project: "L1", IDResiliencyScenario: 2, BaselineID: 1, Stages: []types.Stage{{Stage: 1, HazardLevel: 3, Days: 2}}},
	}}

	path, err := w.WriteScenarios(space)
	require.NoError(t, err)
	rows := readCSV(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2", "1"}, rows[3][:2])
	assert.Equal(t, "L1", rows[3][11])
}
