package bca

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transportresilience/rdr/internal/temporal"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/config"
)

func flatMetrics(m types.ModeMetrics) EventMetrics {
	return EventMetrics{
		types.YearBase:   {types.ModeCar: m},
		types.YearFuture: {types.ModeCar: m},
	}
}

func testCalculator(analysisType string) *Calculator {
	h := temporal.Horizon{StartYear: 2020, EndYear: 2021, BaseYear: 2020, FutureYear: 2021, DollarYear: 2020}
	rates := Rates{types.ModeCar: config.ModeRates{ValueOfTime: 10, OperatingCostPerMile: 1}}
	return NewCalculator(h, rates, config.AnalysisData{ROIAnalysisType: analysisType})
}

func testPair() (Alternative, Alternative) {
	project := Alternative{
		Scenario: types.ResiliencyScenario{
			UncertaintyScenario: types.UncertaintyScenario{FrequencyFactor: 1, HazardEvent: "flood"},
			Project:             "L1",
		},
		Project: types.Project{ID: "L1", Asset: "levee", Cost: 500, Lifespan: 10},
		Travel:  flatMetrics(types.ModeMetrics{Trips: 100, Miles: 900, Hours: 90}),
		Damage:  []types.DamageRecord{{DamageRepairCost: 200}},
	}
	baseline := Alternative{
		Scenario: types.ResiliencyScenario{Project: "no"},
		Project:  types.Project{ID: "no"},
		Travel:   flatMetrics(types.ModeMetrics{Trips: 95, Miles: 1000, Hours: 100}),
		Damage:   []types.DamageRecord{{DamageRepairCost: 1000}, {DamageRepairCost: 300}},
	}
	return project, baseline
}

func TestMonetize(t *testing.T) {
	c := Monetize(types.ModeMetrics{Trips: 2, Miles: 10, Hours: 3}, config.ModeRates{
		ValueOfTime: 20, OperatingCostPerMile: 0.5, SafetyCostPerMile: 0.1, NoiseCostPerMile: 0.01, CO2CostPerMile: 0.02,
	})
	assert.InDelta(t, 60, c.TravelTime, 1e-12)
	assert.InDelta(t, 5, c.Operating, 1e-12)
	assert.InDelta(t, 1, c.Safety, 1e-12)
	assert.InDelta(t, 0.1, c.Noise, 1e-12)
	assert.InDelta(t, 0.2, c.Emissions, 1e-12)
	assert.InDelta(t, 66.1/2, c.PerTrip(2), 1e-12)
	assert.Zero(t, c.PerTrip(0))
}

func TestEventTotals(t *testing.T) {
	stages := []types.Stage{{Stage: 1, HazardLevel: 3, Days: 2}, {Stage: 2, HazardLevel: 1, Days: 1}}
	fetch := func(level int, yt types.YearType) (types.Snapshot, error) {
		scale := 1.0
		if yt == types.YearFuture {
			scale = 2
		}
		return types.Snapshot{Modes: map[types.Mode]types.ModeMetrics{
			types.ModeCar: {Trips: float64(level) * 10 * scale},
		}}, nil
	}

	totals, err := EventTotals(stages, fetch)
	require.NoError(t, err)
	assert.InDelta(t, 70, totals[types.YearBase][types.ModeCar].Trips, 1e-12)
	assert.InDelta(t, 140, totals[types.YearFuture][types.ModeCar].Trips, 1e-12)

	missing := errors.New("missing")
	_, err = EventTotals(stages, func(int, types.YearType) (types.Snapshot, error) { return types.Snapshot{}, missing })
	assert.ErrorIs(t, err, missing)
}

func TestComputeBCA(t *testing.T) {
	project, baseline := testPair()
	r := testCalculator(config.AnalysisBCA).Compute(project, baseline, 0.5)

	// two years at probability 0.5 and no discounting: PV equals one year
	tripLoss := 5 * (100*10 + 1000*1) / 95.0
	assert.InDelta(t, 100, r.Benefits.TravelTime, 1e-9)
	assert.InDelta(t, 100, r.Benefits.Operating, 1e-9)
	assert.InDelta(t, tripLoss, r.Benefits.TripLoss, 1e-9)
	assert.InDelta(t, 800, r.Benefits.Repair, 1e-9)
	assert.InDelta(t, 1000+tripLoss, r.PVBenefits, 1e-9)

	assert.InDelta(t, 500, r.PVCapital, 1e-9)
	assert.InDelta(t, 400, r.PVResidual, 1e-9)
	assert.InDelta(t, 1000+tripLoss-100, r.NetBenefit, 1e-9)
	require.True(t, r.BCR.Valid)
	assert.InDelta(t, (1000+tripLoss)/100, r.BCR.Float64, 1e-9)
	assert.Equal(t, "levee", r.Asset)
	assert.InDelta(t, 200, r.EventRepair, 1e-12)
}

func TestComputeZeroCostIsNotApplicable(t *testing.T) {
	_, baseline := testPair()
	r := testCalculator(config.AnalysisBCA).Compute(baseline, baseline, 0.5)
	assert.False(t, r.BCR.Valid)
	assert.Equal(t, types.NotApplicable, r.BCR.String())
	assert.Zero(t, r.NetBenefit)
}

func TestComputeBreakeven(t *testing.T) {
	project, baseline := testPair()
	r := testCalculator(config.AnalysisBreakeven).Compute(project, baseline, 0.5)
	assert.Zero(t, r.PVCapital)
	assert.Zero(t, r.PVResidual)
	assert.False(t, r.BCR.Valid)
	assert.InDelta(t, r.PVBenefits, r.BreakevenCost, 1e-12)
	assert.InDelta(t, r.PVBenefits, r.NetBenefit, 1e-12)
}

func TestComputeRegret(t *testing.T) {
	project, baseline := testPair()
	r := testCalculator(config.AnalysisRegret).Compute(project, baseline, 0.5)
	assert.Zero(t, r.PVCapital)
	assert.Equal(t, types.Float(0), r.BCR)
	assert.InDelta(t, r.PVBenefits, r.NetBenefit, 1e-12)
}

func TestComputeZeroBaselineTrips(t *testing.T) {
	project, baseline := testPair()
	baseline.Travel = flatMetrics(types.ModeMetrics{Trips: 0, Miles: 1000, Hours: 100})
	r := testCalculator(config.AnalysisBCA).Compute(project, baseline, 0.5)
	assert.Zero(t, r.Benefits.TripLoss)
}

func TestDenseRank(t *testing.T) {
	assert.Equal(t, []int{1, 2, 1, 3}, DenseRank([]float64{5, 3, 5, 1}))
	assert.Equal(t, []int{}, DenseRank([]float64{}))
	assert.Equal(t, []int{1, 1}, DenseRank([]float64{-2, -2}))
}

func result(project, asset, event string, noHazard int, pvb, capital float64) types.BenefitCostResult {
	return types.BenefitCostResult{
		Scenario: types.ResiliencyScenario{
			UncertaintyScenario: types.UncertaintyScenario{HazardEvent: event, IDScenarioNoHazard: noHazard},
			ProjectGroup:        "G1",
			Project:             project,
		},
		Asset:      asset,
		PVBenefits: pvb,
		PVCapital:  capital,
		NetBenefit: pvb - capital,
	}
}

func TestRollup(t *testing.T) {
	summaries := Rollup([]types.BenefitCostResult{
		result("L1", "levee", "flood", 1, 10, 4),
		result("L1", "levee", "flood", 1, 20, 4),
		result("L1", "levee", "surge", 1, 5, 4),
	})
	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.InDelta(t, 20, s.TotalBenefit, 1e-12)
	assert.InDelta(t, 4, s.TotalCost, 1e-12)
	assert.InDelta(t, 16, s.TotalNetBenefit, 1e-12)
	assert.InDelta(t, (6.0+16+1)/3, s.MeanNetBenefit, 1e-12)
}

func TestRollupTiesAreExact(t *testing.T) {
	events := []string{"e1", "e2", "e3", "e4", "e5", "e6"}
	values := []float64{1234567.891, 0.1, 98765.4321, 0.2, 5555555.55, 0.3}

	results := make([]types.BenefitCostResult, 0, 2*len(events))
	for i, event := range events {
		results = append(results, result("P1", "levee", event, 1, values[i], 0))
	}
	// P2 sees the same events in reverse order
	for i := len(events) - 1; i >= 0; i-- {
		results = append(results, result("P2", "levee", events[i], 1, values[i], 0))
	}

	var want float64
	for i := 0; i < 200; i++ {
		summaries := Rollup(results)
		Rank(summaries)
		require.Len(t, summaries, 2)

		p1, p2 := summaries[0], summaries[1]
		require.Equal(t, p1.TotalBenefit, p2.TotalBenefit, "run %d", i)
		require.Equal(t, p1.RegretAll, p2.RegretAll, "run %d", i)
		require.Equal(t, p1.RegretScenario, p2.RegretScenario, "run %d", i)
		require.Equal(t, p1.RegretAsset, p2.RegretAsset, "run %d", i)
		if i == 0 {
			want = p1.TotalBenefit
		}
		require.Equal(t, want, p1.TotalBenefit, "run %d", i)
	}
}

func TestRank(t *testing.T) {
	summaries := Rollup([]types.BenefitCostResult{
		result("no", "", "flood", 1, 0, 0),
		result("P1", "levee", "flood", 1, 10, 0),
		result("P2", "levee", "flood", 1, 0, 5),
		result("P3", "bridge", "flood", 1, 3, 0),
		result("no", "", "flood", 2, 0, 0),
		result("P1", "levee", "flood", 2, 2, 0),
		result("P2", "levee", "flood", 2, 0, 5),
		result("P3", "bridge", "flood", 2, 3, 0),
	})
	Rank(summaries)

	byKey := make(map[string]types.RankedSummary)
	for _, s := range summaries {
		if s.IDScenarioNoHazard == 1 {
			byKey[s.Project] = s
		}
	}
	assert.Equal(t, 1, byKey["P1"].RegretScenario)
	assert.Equal(t, 2, byKey["P3"].RegretScenario)
	assert.Equal(t, 3, byKey["no"].RegretScenario)
	assert.Equal(t, 4, byKey["P2"].RegretScenario)

	assert.Equal(t, 1, byKey["P1"].RegretAsset)
	assert.Equal(t, 3, byKey["P2"].RegretAsset)
	assert.Equal(t, 1, byKey["P3"].RegretAsset)
	assert.Equal(t, 2, byKey["no"].RegretAsset)

	// means across scenarios: P1 6, P3 3, no 0, P2 -5
	assert.Equal(t, 1, byKey["P1"].RegretAll)
	assert.Equal(t, 2, byKey["P3"].RegretAll)
	assert.Equal(t, 3, byKey["no"].RegretAll)
	assert.Equal(t, 4, byKey["P2"].RegretAll)
}
