package bca

import (
	"github.com/transportresilience/rdr/internal/damage"
	"github.com/transportresilience/rdr/internal/temporal"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/config"
)

// Alternative is one side of a benefit-cost comparison: a project, or the
// baseline, under a single scenario.
type Alternative struct {
	Scenario types.ResiliencyScenario
	Project  types.Project
	Travel   EventMetrics
	Damage   []types.DamageRecord
}

// Calculator turns a project/baseline pair into a discounted result
type Calculator struct {
	Horizon      temporal.Horizon
	Rates        Rates
	AnalysisType string
	Costs        temporal.CostOptions

	discount    []float64
	co2Discount []float64
}

// NewCalculator precomputes the discount streams shared by every scenario
func NewCalculator(h temporal.Horizon, rates Rates, analysis config.AnalysisData) *Calculator {
	return &Calculator{
		Horizon:      h,
		Rates:        rates,
		AnalysisType: analysis.ROIAnalysisType,
		Costs:        temporal.CostOptions{Redeployment: analysis.Redeployment, Maintenance: analysis.Maintenance},
		discount:     h.DiscountStream(analysis.DiscountFactor),
		co2Discount:  h.DiscountStream(analysis.CO2DiscountFactor),
	}
}

// Compute compares a project with its baseline. startProbability is the
// event probability in the first analysis year.
func (c *Calculator) Compute(project, baseline Alternative, startProbability float64) types.BenefitCostResult {
	h := c.Horizon
	n := h.Years()
	prob := h.ProbabilityStream(startProbability, project.Scenario.FrequencyFactor)

	travel := make([]float64, n)
	operating := make([]float64, n)
	safety := make([]float64, n)
	noise := make([]float64, n)
	emissions := make([]float64, n)
	tripLoss := make([]float64, n)
	for _, mode := range types.Modes {
		rates, ok := c.Rates[mode]
		if !ok {
			continue
		}
		proj := c.interpolate(project.Travel, mode)
		base := c.interpolate(baseline.Travel, mode)
		for i := 0; i < n; i++ {
			pc := Monetize(proj[i], rates)
			bc := Monetize(base[i], rates)
			travel[i] += bc.TravelTime - pc.TravelTime
			operating[i] += bc.Operating - pc.Operating
			safety[i] += bc.Safety - pc.Safety
			noise[i] += bc.Noise - pc.Noise
			emissions[i] += bc.Emissions - pc.Emissions
			tripLoss[i] += (proj[i].Trips - base[i].Trips) * bc.PerTrip(base[i].Trips)
		}
	}

	projectRepair := damage.EventRepairCost(project.Damage)
	baselineRepair := damage.EventRepairCost(baseline.Damage)

	benefits := types.BenefitComponents{
		TravelTime: temporal.PV(travel, prob, c.discount),
		Operating:  temporal.PV(operating, prob, c.discount),
		Safety:     temporal.PV(safety, prob, c.discount),
		Noise:      temporal.PV(noise, prob, c.discount),
		Emissions:  temporal.PV(emissions, prob, c.co2Discount),
		TripLoss:   temporal.PV(tripLoss, prob, c.discount),
		Repair:     temporal.PV(h.Constant(baselineRepair-projectRepair), prob, c.discount),
	}

	costs := h.ProjectCosts(project.Project, c.Costs)
	r := types.BenefitCostResult{
		Scenario:      project.Scenario,
		Asset:         project.Project.Asset,
		Benefits:      benefits,
		PVBenefits:    benefits.Sum(),
		PVCapital:     temporal.PV(costs.Capital, nil, c.discount),
		PVMaintenance: temporal.PV(costs.Maintenance, nil, c.discount),
		PVResidual:    temporal.PV(costs.Residual, nil, c.discount),
		EventRepair:   projectRepair,
		Damage:        project.Damage,
	}

	switch c.AnalysisType {
	case config.AnalysisBreakeven:
		r.PVCapital, r.PVMaintenance, r.PVResidual = 0, 0, 0
		r.NetBenefit = r.PVBenefits
		r.BreakevenCost = r.PVBenefits
	case config.AnalysisRegret:
		r.PVCapital, r.PVMaintenance, r.PVResidual = 0, 0, 0
		r.NetBenefit = r.PVBenefits
		r.BCR = types.Float(0)
	default:
		r.NetBenefit = r.PVBenefits - r.PVCapital - r.PVMaintenance + r.PVResidual
		if cost := r.NetCost(); cost != 0 {
			r.BCR = types.Float(r.PVBenefits / cost)
		}
	}
	return r
}

// interpolate extends one mode's event totals over the horizon
func (c *Calculator) interpolate(m EventMetrics, mode types.Mode) []types.ModeMetrics {
	base := m[types.YearBase][mode]
	future := m[types.YearFuture][mode]
	trips := c.Horizon.Interpolate(base.Trips, future.Trips)
	miles := c.Horizon.Interpolate(base.Miles, future.Miles)
	hours := c.Horizon.Interpolate(base.Hours, future.Hours)

	out := make([]types.ModeMetrics, len(trips))
	for i := range out {
		out[i] = types.ModeMetrics{Trips: trips[i], Miles: miles[i], Hours: hours[i]}
	}
	return out
}
