package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transportresilience/rdr/internal/types"
)

func TestResultRows(t *testing.T) {
	result := types.BenefitCostResult{
		Scenario: types.ResiliencyScenario{
			UncertaintyScenario: types.UncertaintyScenario{
				Economic: "base", HazardEvent: "flood",
				Variant:            types.HazardVariant{Duration: 3, Recession: 2},
				IDScenarioNoHazard: 1, IDUncertaintyScenario: 2,
			},
			ProjectGroup: "G1", Project: "L1", IDResiliencyScenario: 6, BaselineID: 5,
		},
		Asset:      "levee",
		Benefits:   types.BenefitComponents{TravelTime: 4, Repair: 6},
		PVBenefits: 10,
		Damage: []types.DamageRecord{
			{Stage: 1, HazardLevel: 3, DamageFraction: types.Float(0.25)},
			{Stage: 2, HazardLevel: 1},
		},
	}

	rows, damage := resultRows("run-1", []types.BenefitCostResult{result})
	require.Len(t, rows, 1)
	require.Len(t, damage, 2)

	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, 6, rows[0].IDResiliencyScenario)
	assert.Equal(t, 5, rows[0].BaselineID)
	assert.Equal(t, 3, rows[0].Duration)
	assert.Equal(t, 6.0, rows[0].Repair)
	assert.False(t, rows[0].BCR.Valid)

	assert.Equal(t, 6, damage[1].IDResiliencyScenario)
	assert.True(t, damage[0].DamageFraction.Valid)
	assert.Equal(t, 0.25, damage[0].DamageFraction.Float64)
	assert.False(t, damage[1].DamageFraction.Valid)
}

func TestSummaryAndRunRows(t *testing.T) {
	rows := summaryRows("run-1", []types.RankedSummary{{Project: "no", ProjectGroup: "G1", RegretAll: 2}})
	require.Len(t, rows, 1)
	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, 2, rows[0].RegretAll)

	run := runRow(types.Run{ID: "run-1", Diagnostics: types.Diagnostics{MissingExposure: 2, UnmatchedDamage: 1}})
	assert.Equal(t, 3, run.Diagnostics)
	assert.Equal(t, "rdr_runs", run.TableName())
}
