// Package engine drives an analysis run: it enumerates the scenario space,
// evaluates every resiliency scenario against its baseline in parallel and
// ranks the results once all of them are stored.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/transportresilience/rdr/internal/bca"
	"github.com/transportresilience/rdr/internal/damage"
	"github.com/transportresilience/rdr/internal/hazard"
	"github.com/transportresilience/rdr/internal/scenario"
	"github.com/transportresilience/rdr/internal/temporal"
	"github.com/transportresilience/rdr/internal/travel"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/config"
)

// progressEvery controls how often scenario progress is logged
const progressEvery = 100

// runNamespace scopes the name-based run ids
var runNamespace = uuid.MustParse("6f1c1a52-3b7e-5d2a-9c41-0e8f4b7d2a90")

// Store is the durable run state the engine needs
type Store interface {
	BeginRun(ctx context.Context, run types.Run) (bool, error)
	FinishRun(ctx context.Context, id, status string, diag types.Diagnostics) error
	CompletedScenarios(ctx context.Context, runID string) (map[int]bool, error)
	SaveResult(ctx context.Context, runID string, r types.BenefitCostResult) error
	Results(ctx context.Context, runID string) ([]types.BenefitCostResult, error)
	SaveSummary(ctx context.Context, runID string, summaries []types.RankedSummary) error
}

// Engine evaluates one configuration over one set of input tables
type Engine struct {
	cfg       *config.ConfigData
	in        *Inputs
	store     Store
	provider  travel.Provider
	logger    *zap.SugaredLogger
	estimator *damage.Estimator
	calc      *bca.Calculator
}

// Outcome is what a finished run produced
type Outcome struct {
	Run     types.Run
	Space   *scenario.Space
	Results []types.BenefitCostResult
	Summary []types.RankedSummary
}

// HorizonFromConfig returns the analysis horizon of a configuration
func HorizonFromConfig(a config.AnalysisData) temporal.Horizon {
	return temporal.Horizon{
		StartYear:  a.StartYear,
		EndYear:    a.EndYear,
		BaseYear:   a.BaseYear,
		FutureYear: a.FutureYear,
		DollarYear: a.DollarYear,
	}
}

// RunID derives the run id from the configuration fingerprint and the digest
// of the input tables. Rerunning identical inputs yields the same id.
func RunID(fingerprint, digest string) string {
	return uuid.NewSHA1(runNamespace, []byte(fingerprint+":"+digest)).String()
}

// New prepares an engine. The damage estimator checks here that every event
// joins the network, so a total join failure stops the run before any work.
func New(cfg *config.ConfigData, in *Inputs, store Store, provider travel.Provider, logger *zap.SugaredLogger) (*Engine, error) {
	h := HorizonFromConfig(cfg.Analysis)
	if err := h.Validate(); err != nil {
		return nil, err
	}

	est, err := damage.NewEstimator(in.Model, in.Damage, damage.Policy{
		Mitigation:  cfg.Damage.ResilMitigationApproach,
		MissingData: cfg.Damage.MissingDataPolicy,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		in:        in,
		store:     store,
		provider:  provider,
		logger:    logger,
		estimator: est,
		calc:      bca.NewCalculator(h, bca.RatesFromConfig(cfg.Monetization), cfg.Analysis),
	}, nil
}

// Enumerate builds the scenario space without evaluating it
func (e *Engine) Enumerate() (*scenario.Space, error) {
	u := e.cfg.Uncertainty
	return scenario.Build(scenario.Inputs{
		Economic:         u.Economic,
		Elasticities:     u.Elasticities,
		FrequencyFactors: u.FrequencyFactors,
		Events:           e.in.Events,
		Params: hazard.Params{
			MinDuration:      e.cfg.Hazard.MinDuration,
			MaxDuration:      e.cfg.Hazard.MaxDuration,
			NumDurationCases: e.cfg.Hazard.NumDurationCases,
			Recovery: hazard.RecoveryPolicy{
				Type:   e.cfg.Hazard.HazardRecovType,
				Length: e.cfg.Hazard.HazardRecovLength,
			},
		},
		Projects:      u.Projects,
		ProjectGroups: u.ProjectGroups,
		Memberships:   e.in.Memberships,
		MappingFile:   e.in.MappingFile,
	}, e.logger)
}

// Run evaluates every scenario that the store does not already hold, then
// ranks the full result set. Scenario failures do not stop the others; they
// are joined into the returned error and the run is marked failed, leaving
// the completed scenarios in place for the next attempt.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	fingerprint, err := config.Fingerprint(e.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint configuration: %w", err)
	}

	space, err := e.Enumerate()
	if err != nil {
		return nil, err
	}

	run := types.Run{
		ID:           RunID(fingerprint, e.in.Digest),
		Fingerprint:  fingerprint,
		TablesDigest: e.in.Digest,
		AnalysisType: e.cfg.Analysis.ROIAnalysisType,
		Status:       types.RunRunning,
		Scenarios:    len(space.Resiliency),
		StartedAt:    time.Now(),
	}
	resumed, err := e.store.BeginRun(ctx, run)
	if err != nil {
		return nil, err
	}
	done, err := e.store.CompletedScenarios(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if resumed {
		e.logger.Infow("resuming run", "run", run.ID, "completed", len(done), "scenarios", run.Scenarios)
	} else {
		e.logger.Infow("starting run", "run", run.ID, "scenarios", run.Scenarios, "analysis", run.AnalysisType)
	}

	byID := make(map[int]types.ResiliencyScenario, len(space.Resiliency))
	for _, rs := range space.Resiliency {
		byID[rs.IDResiliencyScenario] = rs
	}

	var (
		mu       sync.Mutex
		failures []error
		finished int
	)
	run.Diagnostics = types.Diagnostics{SkippedProjects: space.Warnings}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for _, rs := range space.Resiliency {
		if done[rs.IDResiliencyScenario] {
			// Damage is cheap to redo and keeps the diagnostics complete on resume
			_, diag, err := e.estimator.Estimate(rs.HazardEvent, rs.Project, rs.IDResiliencyScenario, rs.Stages)
			if err != nil {
				e.logger.Warnw("damage re-estimate failed on resume", "run", run.ID, "scenario", rs.Key(), "error", err)
				continue
			}
			mu.Lock()
			run.Diagnostics.Add(diag)
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, diag, err := e.evaluate(gctx, rs, byID[rs.BaselineID])
			if err == nil {
				err = e.store.SaveResult(gctx, run.ID, result)
			}

			mu.Lock()
			defer mu.Unlock()
			run.Diagnostics.Add(diag)
			if err != nil {
				failures = append(failures, fmt.Errorf("scenario %s: %w", rs.Key(), err))
				return nil
			}
			finished++
			if finished%progressEvery == 0 {
				e.logger.Infow("scenarios evaluated", "run", run.ID, "done", finished+len(done), "total", run.Scenarios)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failures = append(failures, err)
	}

	if run.Diagnostics.Total() > 0 {
		e.logger.Warnw("input data problems tolerated",
			"run", run.ID,
			"missing_exposure", run.Diagnostics.MissingExposure,
			"unmatched_damage", run.Diagnostics.UnmatchedDamage,
			"unmatched_repair_cost", run.Diagnostics.UnmatchedRepairCost,
			"unmatched_repair_time", run.Diagnostics.UnmatchedRepairTime,
			"skipped_projects", run.Diagnostics.SkippedProjects,
		)
	}

	if len(failures) > 0 {
		run.Status = types.RunFailed
		// The caller's context may be gone; record the failure regardless
		if err := e.store.FinishRun(context.WithoutCancel(ctx), run.ID, run.Status, run.Diagnostics); err != nil {
			failures = append(failures, err)
		}
		e.logger.Errorw("run failed", "run", run.ID, "failed_scenarios", len(failures), "completed", finished+len(done))
		return &Outcome{Run: run, Space: space}, errors.Join(failures...)
	}

	results, err := e.store.Results(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	summary := bca.Rollup(results)
	bca.Rank(summary)
	if err := e.store.SaveSummary(ctx, run.ID, summary); err != nil {
		return nil, err
	}

	run.Status = types.RunCompleted
	if err := e.store.FinishRun(ctx, run.ID, run.Status, run.Diagnostics); err != nil {
		return nil, err
	}
	finishedAt := time.Now()
	run.FinishedAt = &finishedAt

	e.logger.Infow("run completed", "run", run.ID, "results", len(results), "summary_rows", len(summary))
	return &Outcome{Run: run, Space: space, Results: results, Summary: summary}, nil
}

func (e *Engine) workers() int {
	if e.cfg.Runtime.Workers > 0 {
		return e.cfg.Runtime.Workers
	}
	return 1
}

// evaluate computes one scenario against its baseline. Only the scenario's
// own damage diagnostics are returned; the baseline counts them itself.
func (e *Engine) evaluate(ctx context.Context, rs, baseline types.ResiliencyScenario) (types.BenefitCostResult, types.Diagnostics, error) {
	project, diag, err := e.alternative(ctx, rs)
	if err != nil {
		return types.BenefitCostResult{}, diag, err
	}

	base := project
	if !rs.IsBaseline() {
		if baseline.IDResiliencyScenario == 0 {
			return types.BenefitCostResult{}, diag, fmt.Errorf("baseline %d not found", rs.BaselineID)
		}
		if base, _, err = e.alternative(ctx, baseline); err != nil {
			return types.BenefitCostResult{}, diag, fmt.Errorf("baseline %s: %w", baseline.Key(), err)
		}
	}

	return e.calc.Compute(project, base, e.in.Probability[rs.HazardEvent]), diag, nil
}

func (e *Engine) alternative(ctx context.Context, rs types.ResiliencyScenario) (bca.Alternative, types.Diagnostics, error) {
	records, diag, err := e.estimator.Estimate(rs.HazardEvent, rs.Project, rs.IDResiliencyScenario, rs.Stages)
	if err != nil {
		return bca.Alternative{}, diag, err
	}

	metrics, err := bca.EventTotals(rs.Stages, func(level int, yt types.YearType) (types.Snapshot, error) {
		return e.provider.Snapshot(ctx, rs.SnapshotKey(level), yt)
	})
	if err != nil {
		return bca.Alternative{}, diag, err
	}

	return bca.Alternative{
		Scenario: rs,
		Project:  e.in.Project(rs.Project),
		Travel:   metrics,
		Damage:   records,
	}, diag, nil
}
