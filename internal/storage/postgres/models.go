package postgres

import (
	"database/sql"
	"time"

	"github.com/transportresilience/rdr/internal/types"
)

// RunRow is an exported run
type RunRow struct {
	ID           string    `gorm:"primaryKey;column:id"`
	Fingerprint  string    `gorm:"column:fingerprint;not null"`
	TablesDigest string    `gorm:"column:tables_digest;not null"`
	AnalysisType string    `gorm:"column:analysis_type;not null"`
	Scenarios    int       `gorm:"column:scenarios"`
	Diagnostics  int       `gorm:"column:diagnostics"`
	ExportedAt   time.Time `gorm:"column:exported_at;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for RunRow
func (RunRow) TableName() string {
	return "rdr_runs"
}

// ResultRow is one benefit-cost result flattened into columns
type ResultRow struct {
	RunID                 string          `gorm:"primaryKey;column:run_id"`
	IDResiliencyScenario  int             `gorm:"primaryKey;column:id_resiliency_scenario"`
	IDUncertaintyScenario int             `gorm:"column:id_uncertainty_scenario;index"`
	IDScenarioNoHazard    int             `gorm:"column:id_scenario_no_hazard"`
	BaselineID            int             `gorm:"column:baseline_id"`
	Economic              string          `gorm:"column:economic"`
	Elasticity            float64         `gorm:"column:elasticity"`
	FrequencyFactor       float64         `gorm:"column:frequency_factor"`
	HazardEvent           string          `gorm:"column:hazard_event"`
	Duration              int             `gorm:"column:duration"`
	Recession             int             `gorm:"column:recession"`
	ProjectGroup          string          `gorm:"column:project_group"`
	Project               string          `gorm:"column:project"`
	Asset                 string          `gorm:"column:asset"`
	TravelTime            float64         `gorm:"column:travel_time_benefit"`
	Operating             float64         `gorm:"column:operating_benefit"`
	Safety                float64         `gorm:"column:safety_benefit"`
	Noise                 float64         `gorm:"column:noise_benefit"`
	Emissions             float64         `gorm:"column:emissions_benefit"`
	TripLoss              float64         `gorm:"column:trip_loss_benefit"`
	Repair                float64         `gorm:"column:repair_benefit"`
	PVBenefits            float64         `gorm:"column:pv_benefits"`
	PVCapital             float64         `gorm:"column:pv_capital"`
	PVMaintenance         float64         `gorm:"column:pv_maintenance"`
	PVResidual            float64         `gorm:"column:pv_residual"`
	NetBenefit            float64         `gorm:"column:net_benefit"`
	BCR                   sql.NullFloat64 `gorm:"column:bcr"`
	BreakevenCost         float64         `gorm:"column:breakeven_cost"`
	EventRepairCost       float64         `gorm:"column:event_repair_cost"`
}

// TableName specifies the table name for ResultRow
func (ResultRow) TableName() string {
	return "rdr_results"
}

// DamageRow is one stage damage record
type DamageRow struct {
	RunID                string          `gorm:"primaryKey;column:run_id"`
	IDResiliencyScenario int             `gorm:"primaryKey;column:id_resiliency_scenario"`
	Stage                int             `gorm:"primaryKey;column:stage"`
	HazardLevel          int             `gorm:"column:hazard_level"`
	StageDays            int             `gorm:"column:stage_days"`
	Exposure             float64         `gorm:"column:exposure"`
	DamageFraction       sql.NullFloat64 `gorm:"column:damage_fraction"`
	DamageRepairCost     float64         `gorm:"column:damage_repair_cost"`
	TotalRepairCost      float64         `gorm:"column:total_repair_cost"`
	RepairDays           float64         `gorm:"column:repair_days"`
	LinksExposed         int             `gorm:"column:links_exposed"`
	LinksUnmatched       int             `gorm:"column:links_unmatched"`
}

// TableName specifies the table name for DamageRow
func (DamageRow) TableName() string {
	return "rdr_damage"
}

// SummaryRow is one ranked summary row
type SummaryRow struct {
	ID                 uint    `gorm:"primaryKey;autoIncrement;column:id"`
	RunID              string  `gorm:"column:run_id;index"`
	Project            string  `gorm:"column:project"`
	ProjectGroup       string  `gorm:"column:project_group"`
	Asset              string  `gorm:"column:asset"`
	IDScenarioNoHazard int     `gorm:"column:id_scenario_no_hazard"`
	Economic           string  `gorm:"column:economic"`
	Elasticity         float64 `gorm:"column:elasticity"`
	FrequencyFactor    float64 `gorm:"column:frequency_factor"`
	TotalBenefit       float64 `gorm:"column:total_benefit"`
	TotalCost          float64 `gorm:"column:total_cost"`
	TotalNetBenefit    float64 `gorm:"column:total_net_benefit"`
	MeanNetBenefit     float64 `gorm:"column:mean_net_benefit"`
	RegretAll          int     `gorm:"column:regret_all"`
	RegretScenario     int     `gorm:"column:regret_scenario"`
	RegretAsset        int     `gorm:"column:regret_asset"`
}

// TableName specifies the table name for SummaryRow
func (SummaryRow) TableName() string {
	return "rdr_summary"
}

func nullable(n types.NullFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n.Float64, Valid: n.Valid}
}

func runRow(run types.Run) RunRow {
	return RunRow{
		ID:           run.ID,
		Fingerprint:  run.Fingerprint,
		TablesDigest: run.TablesDigest,
		AnalysisType: run.AnalysisType,
		Scenarios:    run.Scenarios,
		Diagnostics:  run.Diagnostics.Total(),
	}
}

func resultRows(runID string, results []types.BenefitCostResult) ([]ResultRow, []DamageRow) {
	rows := make([]ResultRow, 0, len(results))
	damage := make([]DamageRow, 0, len(results)*2)
	for _, r := range results {
		s := r.Scenario
		rows = append(rows, ResultRow{
			RunID:                 runID,
			IDResiliencyScenario:  s.IDResiliencyScenario,
			IDUncertaintyScenario: s.IDUncertaintyScenario,
			IDScenarioNoHazard:    s.IDScenarioNoHazard,
			BaselineID:            s.BaselineID,
			Economic:              s.Economic,
			Elasticity:            s.Elasticity,
			FrequencyFactor:       s.FrequencyFactor,
			HazardEvent:           s.HazardEvent,
			Duration:              s.Variant.Duration,
			Recession:             s.Variant.Recession,
			ProjectGroup:          s.ProjectGroup,
			Project:               s.Project,
			Asset:                 r.Asset,
			TravelTime:            r.Benefits.TravelTime,
			Operating:             r.Benefits.Operating,
			Safety:                r.Benefits.Safety,
			Noise:                 r.Benefits.Noise,
			Emissions:             r.Benefits.Emissions,
			TripLoss:              r.Benefits.TripLoss,
			Repair:                r.Benefits.Repair,
			PVBenefits:            r.PVBenefits,
			PVCapital:             r.PVCapital,
			PVMaintenance:         r.PVMaintenance,
			PVResidual:            r.PVResidual,
			NetBenefit:            r.NetBenefit,
			BCR:                   nullable(r.BCR),
			BreakevenCost:         r.BreakevenCost,
			EventRepairCost:       r.EventRepair,
		})
		for _, d := range r.Damage {
			damage = append(damage, DamageRow{
				RunID:                runID,
				IDResiliencyScenario: s.IDResiliencyScenario,
				Stage:                d.Stage,
				HazardLevel:          d.HazardLevel,
				StageDays:            d.StageDays,
				Exposure:             d.Exposure,
				DamageFraction:       nullable(d.DamageFraction),
				DamageRepairCost:     d.DamageRepairCost,
				TotalRepairCost:      d.TotalRepairCost,
				RepairDays:           d.RepairDays,
				LinksExposed:         d.LinksExposed,
				LinksUnmatched:       d.LinksUnmatched,
			})
		}
	}
	return rows, damage
}

func summaryRows(runID string, summaries []types.RankedSummary) []SummaryRow {
	rows := make([]SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, SummaryRow{
			RunID:              runID,
			Project:            s.Project,
			ProjectGroup:       s.ProjectGroup,
			Asset:              s.Asset,
			IDScenarioNoHazard: s.IDScenarioNoHazard,
			Economic:           s.Economic,
			Elasticity:         s.Elasticity,
			FrequencyFactor:    s.FrequencyFactor,
			TotalBenefit:       s.TotalBenefit,
			TotalCost:          s.TotalCost,
			TotalNetBenefit:    s.TotalNetBenefit,
			MeanNetBenefit:     s.MeanNetBenefit,
			RegretAll:          s.RegretAll,
			RegretScenario:     s.RegretScenario,
			RegretAsset:        s.RegretAsset,
		})
	}
	return rows
}
