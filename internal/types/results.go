package types

// DamageRecord is the aggregated damage and repair estimate of one stage of
// one resiliency scenario. It is computed once and never mutated afterwards.
type DamageRecord struct {
	IDResiliencyScenario int       `json:"id_resiliency_scenario"`
	Stage                int       `json:"stage"`
	HazardLevel          int       `json:"hazard_level"`
	StageDays            int       `json:"stage_days"`
	Exposure             float64   `json:"exposure"`
	DamageFraction       NullFloat `json:"damage_fraction"`
	DamageRepairCost     float64   `json:"damage_repair_cost"`
	TotalRepairCost      float64   `json:"total_repair_cost"`
	RepairDays           float64   `json:"repair_days"`
	LinksExposed         int       `json:"links_exposed"`
	LinksUnmatched       int       `json:"links_unmatched"`
}

// BenefitComponents holds present values of each monetized benefit term,
// expressed as baseline minus project (positive means the project helps).
type BenefitComponents struct {
	TravelTime float64 `json:"travel_time"`
	Operating  float64 `json:"operating"`
	Safety     float64 `json:"safety"`
	Noise      float64 `json:"noise"`
	Emissions  float64 `json:"emissions"`
	TripLoss   float64 `json:"trip_loss"`
	Repair     float64 `json:"repair"`
}

// Sum totals every benefit component
func (b BenefitComponents) Sum() float64 {
	return b.TravelTime + b.Operating + b.Safety + b.Noise + b.Emissions + b.TripLoss + b.Repair
}

// BenefitCostResult is the discounted benefit-cost outcome of one resiliency
// scenario relative to its baseline.
type BenefitCostResult struct {
	Scenario      ResiliencyScenario `json:"scenario"`
	Asset         string             `json:"asset"`
	Benefits      BenefitComponents  `json:"benefits"`
	PVBenefits    float64            `json:"pv_benefits"`
	PVCapital     float64            `json:"pv_capital"`
	PVMaintenance float64            `json:"pv_maintenance"`
	PVResidual    float64            `json:"pv_residual"`
	NetBenefit    float64            `json:"net_benefit"`
	BCR           NullFloat          `json:"bcr"`
	BreakevenCost float64            `json:"breakeven_cost"`
	EventRepair   float64            `json:"event_repair_cost"`
	Damage        []DamageRecord     `json:"damage"`
}

// NetCost returns the present value of capital plus maintenance less residual
func (r BenefitCostResult) NetCost() float64 {
	return r.PVCapital + r.PVMaintenance - r.PVResidual
}

// RankedSummary is the hazard-rolled-up, regret-ranked result of one project
// in one project group under one no-hazard scenario.
type RankedSummary struct {
	Project            string  `json:"project"`
	ProjectGroup       string  `json:"project_group"`
	Asset              string  `json:"asset"`
	IDScenarioNoHazard int     `json:"id_scenario_no_hazard"`
	Economic           string  `json:"economic"`
	Elasticity         float64 `json:"elasticity"`
	FrequencyFactor    float64 `json:"frequency_factor"`
	TotalBenefit       float64 `json:"total_benefit"`
	TotalCost          float64 `json:"total_cost"`
	TotalNetBenefit    float64 `json:"total_net_benefit"`
	MeanNetBenefit     float64 `json:"mean_net_benefit"`
	RegretAll          int     `json:"regret_all"`
	RegretScenario     int     `json:"regret_scenario"`
	RegretAsset        int     `json:"regret_asset"`
}
