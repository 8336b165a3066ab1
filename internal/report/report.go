// Package report writes run outputs to disk: CSV tables for spreadsheets and
// a JSON or MessagePack document for programs.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/scenario"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/responseformat"
)

// Output file names
const (
	ScenariosFile = "scenarios.csv"
	DamageFile    = "damage.csv"
	ResultsFile   = "bca.csv"
	SummaryFile   = "summary.csv"
	RunFile       = "run"
)

// Writer writes outputs below a base directory
type Writer struct {
	Dir    string
	Format string
	logger *zap.SugaredLogger
}

// NewWriter creates a writer. Format is json or msgpack.
func NewWriter(dir, format string, logger *zap.SugaredLogger) *Writer {
	return &Writer{Dir: dir, Format: format, logger: logger}
}

// RunDocument is the machine-readable form of a finished run
type RunDocument struct {
	Run     types.Run                 `json:"run"`
	Results []types.BenefitCostResult `json:"results"`
	Summary []types.RankedSummary     `json:"summary"`
}

// WriteRun writes every table of a run into <dir>/<run id> and returns that
// directory.
func (w *Writer) WriteRun(run types.Run, results []types.BenefitCostResult, summary []types.RankedSummary) (string, error) {
	dir := filepath.Join(w.Dir, run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	if err := writeCSV(filepath.Join(dir, DamageFile), damageHeader, damageRows(results)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(dir, ResultsFile), resultHeader, resultRows(results)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(dir, SummaryFile), summaryHeader, summaryRows(summary)); err != nil {
		return "", err
	}

	doc := filepath.Join(dir, RunFile+"."+responseformat.Extension(w.Format))
	f, err := os.Create(doc)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := responseformat.Encode(f, w.Format, RunDocument{Run: run, Results: results, Summary: summary}); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", doc, err)
	}

	w.logger.Infow("run outputs written", "dir", dir, "results", len(results), "summary_rows", len(summary))
	return dir, f.Close()
}

// WriteScenarios writes the enumerated scenario space, one row per stage
func (w *Writer) WriteScenarios(space *scenario.Space) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.Dir, err)
	}
	path := filepath.Join(w.Dir, ScenariosFile)
	if err := writeCSV(path, scenarioHeader, scenarioRows(space)); err != nil {
		return "", err
	}
	w.logger.Infow("scenario space written", "file", path, "scenarios", len(space.Resiliency))
	return path, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var scenarioHeader = []string{
	"id_resiliency_scenario", "baseline_id", "id_uncertainty_scenario", "id_scenario_no_hazard",
	"economic", "elasticity", "frequency_factor", "hazard_event", "duration", "recession",
	"project_group", "project", "stage", "hazard_level", "stage_days",
}

func scenarioRows(space *scenario.Space) [][]string {
	rows := make([][]string, 0, len(space.Resiliency)*2)
	for _, rs := range space.Resiliency {
		for _, st := range rs.Stages {
			rows = append(rows, []string{
				itoa(rs.IDResiliencyScenario), itoa(rs.BaselineID), itoa(rs.IDUncertaintyScenario), itoa(rs.IDScenarioNoHazard),
				rs.Economic, ftoa(rs.Elasticity), ftoa(rs.FrequencyFactor), rs.HazardEvent,
				itoa(rs.Variant.Duration), itoa(rs.Variant.Recession),
				rs.ProjectGroup, rs.Project, itoa(st.Stage), itoa(st.HazardLevel), itoa(st.Days),
			})
		}
	}
	return rows
}

var damageHeader = []string{
	"id_resiliency_scenario", "project_group", "project", "hazard_event", "stage", "hazard_level", "stage_days",
	"exposure", "damage_fraction", "damage_repair_cost", "total_repair_cost", "repair_days",
	"links_exposed", "links_unmatched",
}

func damageRows(results []types.BenefitCostResult) [][]string {
	rows := make([][]string, 0, len(results)*2)
	for _, r := range results {
		s := r.Scenario
		for _, d := range r.Damage {
			rows = append(rows, []string{
				itoa(s.IDResiliencyScenario), s.ProjectGroup, s.Project, s.HazardEvent,
				itoa(d.Stage), itoa(d.HazardLevel), itoa(d.StageDays),
				ftoa(d.Exposure), d.DamageFraction.String(), ftoa(d.DamageRepairCost), ftoa(d.TotalRepairCost), ftoa(d.RepairDays),
				itoa(d.LinksExposed), itoa(d.LinksUnmatched),
			})
		}
	}
	return rows
}

var resultHeader = []string{
	"id_resiliency_scenario", "baseline_id", "id_uncertainty_scenario", "id_scenario_no_hazard",
	"economic", "elasticity", "frequency_factor", "hazard_event", "duration", "recession",
	"project_group", "project", "asset",
	"travel_time_benefit", "operating_benefit", "safety_benefit", "noise_benefit", "emissions_benefit",
	"trip_loss_benefit", "repair_benefit", "pv_benefits", "pv_capital", "pv_maintenance", "pv_residual",
	"net_benefit", "bcr", "breakeven_cost", "event_repair_cost",
}

func resultRows(results []types.BenefitCostResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		s := r.Scenario
		b := r.Benefits
		rows = append(rows, []string{
			itoa(s.IDResiliencyScenario), itoa(s.BaselineID), itoa(s.IDUncertaintyScenario), itoa(s.IDScenarioNoHazard),
			s.Economic, ftoa(s.Elasticity), ftoa(s.FrequencyFactor), s.HazardEvent,
			itoa(s.Variant.Duration), itoa(s.Variant.Recession),
			s.ProjectGroup, s.Project, r.Asset,
			ftoa(b.TravelTime), ftoa(b.Operating), ftoa(b.Safety), ftoa(b.Noise), ftoa(b.Emissions),
			ftoa(b.TripLoss), ftoa(b.Repair), ftoa(r.PVBenefits), ftoa(r.PVCapital), ftoa(r.PVMaintenance), ftoa(r.PVResidual),
			ftoa(r.NetBenefit), r.BCR.String(), ftoa(r.BreakevenCost), ftoa(r.EventRepair),
		})
	}
	return rows
}

var summaryHeader = []string{
	"project", "project_group", "asset", "id_scenario_no_hazard", "economic", "elasticity", "frequency_factor",
	"total_benefit", "total_cost", "total_net_benefit", "mean_net_benefit",
	"regret_all", "regret_scenario", "regret_asset",
}

func summaryRows(summary []types.RankedSummary) [][]string {
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, []string{
			s.Project, s.ProjectGroup, s.Asset, itoa(s.IDScenarioNoHazard), s.Economic, ftoa(s.Elasticity), ftoa(s.FrequencyFactor),
			ftoa(s.TotalBenefit), ftoa(s.TotalCost), ftoa(s.TotalNetBenefit), ftoa(s.MeanNetBenefit),
			itoa(s.RegretAll), itoa(s.RegretScenario), itoa(s.RegretAsset),
		})
	}
	return rows
}
