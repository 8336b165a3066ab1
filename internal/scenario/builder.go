// Package scenario enumerates the uncertainty and resiliency scenario space
// and assigns every scenario its sequential id.
package scenario

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/hazard"
	"github.com/transportresilience/rdr/internal/tables"
	"github.com/transportresilience/rdr/internal/types"
)

// CoverageError reports a configured project that the project-group mapping
// never mentions.
type CoverageError struct {
	Project     string
	MappingFile string
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("project %q is not assigned to any project group in %s", e.Project, e.MappingFile)
}

// BaselineError reports a requested project group without a baseline row
type BaselineError struct {
	ProjectGroup string
	MappingFile  string
}

func (e *BaselineError) Error() string {
	return fmt.Sprintf("project group %q has no %q project in %s", e.ProjectGroup, constants.BaselineProject, e.MappingFile)
}

// Inputs lists every dimension of the scenario space, in configured order
type Inputs struct {
	Economic         []string
	Elasticities     []float64
	FrequencyFactors []float64
	Events           []hazard.Event
	Params           hazard.Params
	Projects         []string
	ProjectGroups    []string
	Memberships      []tables.Membership
	MappingFile      string
}

// Space is the enumerated scenario space
type Space struct {
	Uncertainty []types.UncertaintyScenario
	Resiliency  []types.ResiliencyScenario
	// Paths holds the recovery path of each uncertainty scenario, by id
	Paths map[int]hazard.Path
	// Warnings counts mapped projects skipped because they are not configured
	Warnings int
}

// Baselines returns the baseline row of every (uncertainty scenario, group)
// keyed by its IDResiliencyScenario.
func (s *Space) Baselines() map[int]types.ResiliencyScenario {
	out := make(map[int]types.ResiliencyScenario)
	for _, r := range s.Resiliency {
		if r.IsBaseline() {
			out[r.IDResiliencyScenario] = r
		}
	}
	return out
}

// Build enumerates the space. Ids are assigned sequentially from 1 in a fixed
// order, so identical inputs always produce identical ids.
func Build(in Inputs, logger *zap.SugaredLogger) (*Space, error) {
	groups, warnings, err := groupProjects(in, logger)
	if err != nil {
		return nil, err
	}

	paths := make(map[string][]hazard.Path, len(in.Events))
	for _, ev := range in.Events {
		p, err := hazard.GeneratePaths(ev, in.Params)
		if err != nil {
			return nil, err
		}
		if len(p) < in.Params.NumDurationCases {
			logger.Debugf("hazard event %s: %d distinct durations from %d requested cases", ev.Name, len(p), in.Params.NumDurationCases)
		}
		paths[ev.Name] = p
	}

	nNoHazard := len(in.Economic) * len(in.Elasticities) * len(in.FrequencyFactors)
	nVariants := 0
	for _, p := range paths {
		nVariants += len(p)
	}
	nProjects := 0
	for _, g := range in.ProjectGroups {
		nProjects += len(groups[g])
	}

	space := &Space{
		Uncertainty: make([]types.UncertaintyScenario, 0, nNoHazard*nVariants),
		Resiliency:  make([]types.ResiliencyScenario, 0, nNoHazard*nVariants*nProjects),
		Paths:       make(map[int]hazard.Path, nNoHazard*nVariants),
		Warnings:    warnings,
	}

	noHazardID := 0
	for _, econ := range in.Economic {
		for _, elasticity := range in.Elasticities {
			for _, freq := range in.FrequencyFactors {
				noHazardID++
				for _, ev := range in.Events {
					for _, path := range paths[ev.Name] {
						us := types.UncertaintyScenario{
							Economic:              econ,
							Elasticity:            elasticity,
							FrequencyFactor:       freq,
							HazardEvent:           ev.Name,
							Variant:               path.Variant(),
							IDScenarioNoHazard:    noHazardID,
							IDUncertaintyScenario: len(space.Uncertainty) + 1,
						}
						space.Uncertainty = append(space.Uncertainty, us)
						space.Paths[us.IDUncertaintyScenario] = path
					}
				}
			}
		}
	}

	for _, us := range space.Uncertainty {
		stages := hazard.Stages(space.Paths[us.IDUncertaintyScenario].Levels)
		for _, g := range in.ProjectGroups {
			baselineID := 0
			for _, project := range groups[g] {
				rs := types.ResiliencyScenario{
					UncertaintyScenario:  us,
					ProjectGroup:         g,
					Project:              project,
					IDResiliencyScenario: len(space.Resiliency) + 1,
					Stages:               stages,
				}
				// groupProjects puts the baseline first
				if project == constants.BaselineProject {
					baselineID = rs.IDResiliencyScenario
				}
				rs.BaselineID = baselineID
				space.Resiliency = append(space.Resiliency, rs)
			}
		}
	}

	logger.Infow("scenario space built",
		"no_hazard_scenarios", nNoHazard,
		"uncertainty_scenarios", len(space.Uncertainty),
		"resiliency_scenarios", len(space.Resiliency),
		"skipped_projects", warnings,
	)
	return space, nil
}

// groupProjects resolves each requested group to its projects, baseline
// first and the rest in mapping order.
func groupProjects(in Inputs, logger *zap.SugaredLogger) (map[string][]string, int, error) {
	configured := make(map[string]bool, len(in.Projects))
	for _, p := range in.Projects {
		configured[p] = true
	}

	mapped := make(map[string]bool, len(in.Memberships))
	for _, m := range in.Memberships {
		mapped[m.Project] = true
	}
	for _, p := range in.Projects {
		if !mapped[p] {
			return nil, 0, &CoverageError{Project: p, MappingFile: in.MappingFile}
		}
	}

	requested := make(map[string]bool, len(in.ProjectGroups))
	for _, g := range in.ProjectGroups {
		requested[g] = true
	}

	warnings := 0
	groups := make(map[string][]string, len(in.ProjectGroups))
	seen := make(map[tables.Membership]bool, len(in.Memberships))
	for _, m := range in.Memberships {
		if !requested[m.ProjectGroup] || seen[m] {
			continue
		}
		seen[m] = true
		if !configured[m.Project] {
			warnings++
			logger.Warnw("skipping mapped project that is not configured",
				"project", m.Project, "project_group", m.ProjectGroup, "mapping", in.MappingFile)
			continue
		}
		if m.Project == constants.BaselineProject {
			groups[m.ProjectGroup] = append([]string{m.Project}, groups[m.ProjectGroup]...)
			continue
		}
		groups[m.ProjectGroup] = append(groups[m.ProjectGroup], m.Project)
	}

	for _, g := range in.ProjectGroups {
		if len(groups[g]) == 0 || groups[g][0] != constants.BaselineProject {
			return nil, warnings, &BaselineError{ProjectGroup: g, MappingFile: in.MappingFile}
		}
	}
	return groups, warnings, nil
}
