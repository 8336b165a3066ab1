package engine

import (
	"fmt"

	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/damage"
	"github.com/transportresilience/rdr/internal/hazard"
	"github.com/transportresilience/rdr/internal/tables"
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/config"
)

// Inputs is every static table a run needs, loaded and cross-checked
type Inputs struct {
	Events      []hazard.Event
	Levels      map[string][]types.HazardLevel
	Probability map[string]float64
	Projects    map[string]types.Project
	Memberships []tables.Membership
	MappingFile string
	Model       damage.Model
	Damage      damage.Inputs
	Digest      string
}

// LoadInputs reads the tables named by the configuration. Any missing table,
// column or configured event is fatal.
func LoadInputs(cfg *config.ConfigData) (*Inputs, error) {
	loader := tables.NewLoader(cfg.Inputs.Dir)

	levels, err := loader.HazardLevels(cfg.Inputs.HazardLevels)
	if err != nil {
		return nil, err
	}
	byEvent, _ := tables.EventsFromLevels(levels)

	links, err := loader.Links(cfg.Inputs.Links)
	if err != nil {
		return nil, err
	}
	projects, err := loader.Projects(cfg.Inputs.Projects)
	if err != nil {
		return nil, err
	}
	for _, p := range cfg.Uncertainty.Projects {
		if _, ok := projects[p]; !ok {
			return nil, fmt.Errorf("project %q is configured but missing from %s", p, loader.Path(cfg.Inputs.Projects))
		}
	}
	reductions, err := loader.ProjectLinks(cfg.Inputs.ProjectLinks)
	if err != nil {
		return nil, err
	}
	memberships, err := loader.ProjectGroups(cfg.Inputs.ProjectGroups)
	if err != nil {
		return nil, err
	}

	model, err := loadModel(loader, cfg)
	if err != nil {
		return nil, err
	}

	repairCostTable := ""
	if cfg.Damage.RepairCostApproach == config.TableUserDefined {
		repairCostTable = cfg.Inputs.RepairCost
	}
	repairCost, err := loader.RepairCost(repairCostTable)
	if err != nil {
		return nil, err
	}

	repairTimeTable := ""
	if cfg.Damage.RepairTimeApproach == config.TableUserDefined {
		repairTimeTable = cfg.Inputs.RepairTime
	}
	repairTime, err := loader.RepairTime(repairTimeTable)
	if err != nil {
		return nil, err
	}

	factor, err := damage.UnitFactor(cfg.Hazard.ExposureUnit)
	if err != nil {
		return nil, err
	}

	in := &Inputs{
		Events:      make([]hazard.Event, 0, len(cfg.Uncertainty.HazardEvents)),
		Levels:      make(map[string][]types.HazardLevel, len(cfg.Uncertainty.HazardEvents)),
		Probability: make(map[string]float64, len(cfg.Uncertainty.HazardEvents)),
		Projects:    projects,
		Memberships: memberships,
		MappingFile: loader.Path(cfg.Inputs.ProjectGroups),
		Model:       model,
		Damage: damage.Inputs{
			Links:      links,
			Events:     make(map[string]damage.EventExposure, len(cfg.Uncertainty.HazardEvents)),
			Reductions: reductions,
			RepairCost: repairCost,
			RepairTime: repairTime,
		},
	}

	for _, name := range cfg.Uncertainty.HazardEvents {
		eventLevels, ok := byEvent[name]
		if !ok {
			return nil, fmt.Errorf("hazard event %q is configured but missing from %s", name, loader.Path(cfg.Inputs.HazardLevels))
		}

		ev := hazard.Event{Name: name, Levels: make([]int, 0, len(eventLevels))}
		depths := make(map[int]float64, len(eventLevels))
		source := ""
		for _, hl := range eventLevels {
			ev.Levels = append(ev.Levels, hl.Level)
			depths[hl.Level] = hl.RecoveryDepth * factor
			if source == "" {
				source = hl.SourceFile
			} else if hl.SourceFile != "" && hl.SourceFile != source {
				return nil, fmt.Errorf("hazard event %q names two exposure files: %s and %s", name, source, hl.SourceFile)
			}
		}
		if source == "" {
			return nil, fmt.Errorf("hazard event %q has no exposure source_file", name)
		}

		raw, err := loader.Exposures(source)
		if err != nil {
			return nil, err
		}
		exposure := make(map[string]float64, len(raw))
		for link, x := range raw {
			exposure[link] = x * factor
		}

		in.Events = append(in.Events, ev)
		in.Levels[name] = eventLevels
		in.Probability[name] = startProbability(eventLevels, ev.Initial())
		in.Damage.Events[name] = damage.EventExposure{File: loader.Path(source), Exposure: exposure, Depths: depths}
	}

	in.Digest = loader.Digest()
	return in, nil
}

// startProbability returns the start-year probability recorded on the
// event's initial level
func startProbability(levels []types.HazardLevel, initial int) float64 {
	for _, hl := range levels {
		if hl.Level == initial {
			return hl.StartYearProbability
		}
	}
	return 0
}

func loadModel(loader *tables.Loader, cfg *config.ConfigData) (damage.Model, error) {
	switch cfg.Damage.ExposureDamageApproach {
	case config.ExposureBinary:
		return damage.BinaryModel{}, nil
	case config.ExposureManual:
		rows, err := loader.ExposureDamage(cfg.Inputs.ExposureDamage)
		if err != nil {
			return nil, err
		}
		return damage.NewTableModel(rows), nil
	default:
		rows, err := loader.ExposureDamage("")
		if err != nil {
			return nil, err
		}
		return damage.NewTableModel(rows), nil
	}
}

// Project returns the project row of a scenario. The baseline always has a
// row with zero cost.
func (in *Inputs) Project(id string) types.Project {
	if p, ok := in.Projects[id]; ok {
		return p
	}
	return types.Project{ID: constants.BaselineProject}
}
