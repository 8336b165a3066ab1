package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/responseformat"
)

func nullable(n types.NullFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n.Float64, Valid: n.Valid}
}

// SaveResult writes one finished scenario result and its damage records in a
// single transaction. Rewriting a scenario replaces it.
func (s *Store) SaveResult(ctx context.Context, runID string, r types.BenefitCostResult) error {
	payload, err := responseformat.MarshalMsgpack(r)
	if err != nil {
		return fmt.Errorf("failed to encode result %s: %w", r.Scenario.Key(), err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := r.Scenario.IDResiliencyScenario
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO results
			(run_id, id_resiliency_scenario, id_uncertainty_scenario, project_group, project, net_benefit, bcr, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, id, r.Scenario.IDUncertaintyScenario, r.Scenario.ProjectGroup, r.Scenario.Project,
		r.NetBenefit, nullable(r.BCR), payload,
	); err != nil {
		return fmt.Errorf("failed to store result %s: %w", r.Scenario.Key(), err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM damage WHERE run_id = ? AND id_resiliency_scenario = ?", runID, id); err != nil {
		return err
	}
	for _, d := range r.Damage {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO damage
				(run_id, id_resiliency_scenario, stage, hazard_level, stage_days, exposure, damage_fraction,
				 damage_repair_cost, total_repair_cost, repair_days, links_exposed, links_unmatched)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, id, d.Stage, d.HazardLevel, d.StageDays, d.Exposure, nullable(d.DamageFraction),
			d.DamageRepairCost, d.TotalRepairCost, d.RepairDays, d.LinksExposed, d.LinksUnmatched,
		); err != nil {
			return fmt.Errorf("failed to store damage of %s stage %d: %w", r.Scenario.Key(), d.Stage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result %s: %w", r.Scenario.Key(), err)
	}
	return nil
}

// Results returns every stored result of a run, ordered by scenario id
func (s *Store) Results(ctx context.Context, runID string) ([]types.BenefitCostResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM results WHERE run_id = ? ORDER BY id_resiliency_scenario", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []types.BenefitCostResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r types.BenefitCostResult
		if err := responseformat.UnmarshalMsgpack(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CompletedScenarios returns the scenario ids that already have a result
func (s *Store) CompletedScenarios(ctx context.Context, runID string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id_resiliency_scenario FROM results WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed scenarios: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}

// Damage returns every stored damage record of a run
func (s *Store) Damage(ctx context.Context, runID string) ([]types.DamageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id_resiliency_scenario, stage, hazard_level, stage_days, exposure, damage_fraction,
		       damage_repair_cost, total_repair_cost, repair_days, links_exposed, links_unmatched
		FROM damage WHERE run_id = ?
		ORDER BY id_resiliency_scenario, stage`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query damage: %w", err)
	}
	defer rows.Close()

	var records []types.DamageRecord
	for rows.Next() {
		var d types.DamageRecord
		var frac sql.NullFloat64
		if err := rows.Scan(&d.IDResiliencyScenario, &d.Stage, &d.HazardLevel, &d.StageDays, &d.Exposure, &frac,
			&d.DamageRepairCost, &d.TotalRepairCost, &d.RepairDays, &d.LinksExposed, &d.LinksUnmatched); err != nil {
			return nil, err
		}
		d.DamageFraction = types.NullFloat{Float64: frac.Float64, Valid: frac.Valid}
		records = append(records, d)
	}
	return records, rows.Err()
}

// SaveSummary replaces the ranked summary of a run
func (s *Store) SaveSummary(ctx context.Context, runID string, summaries []types.RankedSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM summary WHERE run_id = ?", runID); err != nil {
		return err
	}
	for _, r := range summaries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO summary
				(run_id, project, project_group, id_scenario_no_hazard, asset, economic, elasticity, frequency_factor,
				 total_benefit, total_cost, total_net_benefit, mean_net_benefit, regret_all, regret_scenario, regret_asset)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Project, r.ProjectGroup, r.IDScenarioNoHazard, r.Asset, r.Economic, r.Elasticity, r.FrequencyFactor,
			r.TotalBenefit, r.TotalCost, r.TotalNetBenefit, r.MeanNetBenefit, r.RegretAll, r.RegretScenario, r.RegretAsset,
		); err != nil {
			return fmt.Errorf("failed to store summary row: %w", err)
		}
	}
	return tx.Commit()
}

// Summary returns the ranked summary of a run, best overall first
func (s *Store) Summary(ctx context.Context, runID string) ([]types.RankedSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project, project_group, id_scenario_no_hazard, asset, economic, elasticity, frequency_factor,
		       total_benefit, total_cost, total_net_benefit, mean_net_benefit, regret_all, regret_scenario, regret_asset
		FROM summary WHERE run_id = ?
		ORDER BY regret_all, id_scenario_no_hazard, project_group, project`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var out []types.RankedSummary
	for rows.Next() {
		var r types.RankedSummary
		if err := rows.Scan(&r.Project, &r.ProjectGroup, &r.IDScenarioNoHazard, &r.Asset, &r.Economic, &r.Elasticity,
			&r.FrequencyFactor, &r.TotalBenefit, &r.TotalCost, &r.TotalNetBenefit, &r.MeanNetBenefit,
			&r.RegretAll, &r.RegretScenario, &r.RegretAsset); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
