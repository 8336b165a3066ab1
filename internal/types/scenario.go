package types

import (
	"fmt"
	"strconv"

	"github.com/transportresilience/rdr/internal/constants"
)

// HazardVariant is one (duration, recession) realization of a hazard event's
// recovery path.
type HazardVariant struct {
	Duration  int `json:"duration"`
	Recession int `json:"recession"`
}

// Total returns the full path length in days
func (v HazardVariant) Total() int {
	return v.Duration + v.Recession
}

// UncertaintyScenario is one combination of economic future, trip-loss
// elasticity, event frequency and hazard recovery path.
type UncertaintyScenario struct {
	Economic              string        `json:"economic"`
	Elasticity            float64       `json:"elasticity"`
	FrequencyFactor       float64       `json:"frequency_factor"`
	HazardEvent           string        `json:"hazard_event"`
	Variant               HazardVariant `json:"variant"`
	IDScenarioNoHazard    int           `json:"id_scenario_no_hazard"`
	IDUncertaintyScenario int           `json:"id_uncertainty_scenario"`
}

// Stage is a maximal run of constant hazard level within a recovery path
type Stage struct {
	Stage       int `json:"stage"`
	HazardLevel int `json:"hazard_level"`
	Days        int `json:"days"`
}

// ResiliencyScenario pairs an uncertainty scenario with a resilience project
// from one project group. BaselineID points at the sibling row whose project is
// "no"; a baseline row points at itself.
type ResiliencyScenario struct {
	UncertaintyScenario
	ProjectGroup         string  `json:"project_group"`
	Project              string  `json:"project"`
	IDResiliencyScenario int     `json:"id_resiliency_scenario"`
	BaselineID           int     `json:"baseline_id"`
	Stages               []Stage `json:"stages"`
}

// IsBaseline reports whether this row is the do-nothing alternative
func (r ResiliencyScenario) IsBaseline() bool {
	return r.Project == constants.BaselineProject
}

// Key returns the tagged composite identifier used for every scenario join
func (r ResiliencyScenario) Key() ScenarioKey {
	return ScenarioKey{Uncertainty: r.IDUncertaintyScenario, Resiliency: r.IDResiliencyScenario}
}

// SnapshotKey returns the travel-metrics key of one recovery stage of this scenario
func (r ResiliencyScenario) SnapshotKey(level int) SnapshotKey {
	return SnapshotKey{
		Economic:      r.Economic,
		ProjectGroup:  r.ProjectGroup,
		Project:       r.Project,
		Elasticity:    r.Elasticity,
		HazardEvent:   r.HazardEvent,
		RecoveryStage: level,
	}
}

// ScenarioKey identifies a resiliency scenario together with its parent
// uncertainty scenario.
type ScenarioKey struct {
	Uncertainty int
	Resiliency  int
}

func (k ScenarioKey) String() string {
	return fmt.Sprintf("U%d/R%d", k.Uncertainty, k.Resiliency)
}

// SnapshotKey is the composite key of a travel-metrics snapshot
type SnapshotKey struct {
	Economic      string  `json:"economic"`
	ProjectGroup  string  `json:"project_group"`
	Project       string  `json:"project"`
	Elasticity    float64 `json:"elasticity"`
	HazardEvent   string  `json:"hazard"`
	RecoveryStage int     `json:"recovery_stage"`
}

func (k SnapshotKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d", k.Economic, k.ProjectGroup, k.Project,
		strconv.FormatFloat(k.Elasticity, 'g', -1, 64), k.HazardEvent, k.RecoveryStage)
}

// YearType selects which of the two modeled years a snapshot describes
type YearType string

const (
	YearBase   YearType = "base"
	YearFuture YearType = "future"
)

// YearTypes lists both modeled years in a stable order
var YearTypes = []YearType{YearBase, YearFuture}
