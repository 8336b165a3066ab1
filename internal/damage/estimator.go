package damage

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/tables"
	"github.com/transportresilience/rdr/internal/types"
)

// Mitigation and missing-data policy names
const (
	MitigationBinary = "binary"
	MitigationManual = "manual"
	PolicyZeroFill   = "zero_fill"
	PolicyFail       = "fail"
)

// EventExposure is the exposure of one hazard event, already converted to
// feet.
type EventExposure struct {
	File     string
	Exposure map[string]float64
	// Depths holds the recovery depth of each hazard level
	Depths map[int]float64
}

// Inputs is the static data the estimator needs
type Inputs struct {
	Links      []types.Link
	Events     map[string]EventExposure
	Reductions map[string]map[string]float64
	RepairCost []tables.RepairCostRow
	RepairTime []tables.RepairTimeRow
}

// Policy selects the mitigation and missing-data behavior
type Policy struct {
	Mitigation  string
	MissingData string
}

type costKey struct {
	asset    string
	facility int
}

// Estimator computes per-stage damage records. It is safe for concurrent
// use once built.
type Estimator struct {
	model  Model
	in     Inputs
	policy Policy
	costs  map[costKey]tables.RepairCostRow
}

// NewEstimator checks that every event joins the network and indexes the
// repair cost table.
func NewEstimator(model Model, in Inputs, policy Policy) (*Estimator, error) {
	if len(in.Links) == 0 {
		return nil, fmt.Errorf("network has no links")
	}
	for name, ev := range in.Events {
		matched := false
		for _, l := range in.Links {
			if _, ok := ev.Exposure[l.ID]; ok {
				matched = true
				break
			}
		}
		if !matched {
			return nil, &JoinError{Event: name, File: ev.File}
		}
	}

	costs := make(map[costKey]tables.RepairCostRow, len(in.RepairCost))
	for _, r := range in.RepairCost {
		k := costKey{asset: r.AssetType, facility: r.FacilityType}
		if _, dup := costs[k]; !dup {
			costs[k] = r
		}
	}

	if policy.MissingData == "" {
		policy.MissingData = PolicyZeroFill
	}
	return &Estimator{model: model, in: in, policy: policy, costs: costs}, nil
}

// linkDamage is the damage of one exposed link at one stage
type linkDamage struct {
	link     types.Link
	exposure float64
	fraction float64
	matched  bool
}

// Estimate returns one damage record per stage for the given project under
// the given event. The baseline project gets no exposure reduction.
func (e *Estimator) Estimate(event, project string, scenarioID int, stages []types.Stage) ([]types.DamageRecord, types.Diagnostics, error) {
	var diag types.Diagnostics
	ev, ok := e.in.Events[event]
	if !ok {
		return nil, diag, fmt.Errorf("hazard event %q has no exposure data", event)
	}

	records := make([]types.DamageRecord, 0, len(stages))
	for _, st := range stages {
		rec, d, err := e.estimateStage(event, ev, project, st)
		if err != nil {
			return nil, diag, err
		}
		diag.Add(d)
		rec.IDResiliencyScenario = scenarioID
		records = append(records, rec)
	}
	return records, diag, nil
}

func (e *Estimator) tolerate(kind, event, link, key string) error {
	if e.policy.MissingData == PolicyFail {
		return &MismatchError{Kind: kind, Event: event, Link: link, Key: key}
	}
	return nil
}

func (e *Estimator) estimateStage(event string, ev EventExposure, project string, st types.Stage) (types.DamageRecord, types.Diagnostics, error) {
	var diag types.Diagnostics
	rec := types.DamageRecord{Stage: st.Stage, HazardLevel: st.HazardLevel, StageDays: st.Days}

	var reductions map[string]float64
	if project != constants.BaselineProject {
		reductions = e.in.Reductions[project]
	}
	depth := ev.Depths[st.HazardLevel]

	exposed := make([]linkDamage, 0, len(e.in.Links))
	for _, l := range e.in.Links {
		raw, ok := ev.Exposure[l.ID]
		if !ok {
			diag.MissingExposure++
			if err := e.tolerate(MismatchExposure, event, l.ID, ev.File); err != nil {
				return rec, diag, err
			}
			continue
		}
		x := math.Max(0, raw-depth)
		if x <= 0 {
			continue
		}

		ld := linkDamage{link: l, exposure: x}
		reduction, touched := reductions[l.ID]
		switch {
		case touched && e.policy.Mitigation == MitigationBinary,
			touched && reduction >= constants.FullMitigation:
			ld.exposure, ld.fraction, ld.matched = 0, 0, true
		default:
			if touched {
				ld.exposure = math.Max(0, x-reduction)
			}
			frac := e.model.Fraction(l.AssetType, ld.exposure)
			if !frac.Valid {
				diag.UnmatchedDamage++
				if err := e.tolerate(MismatchDamage, event, l.ID, fmt.Sprintf("%s at %g", l.AssetType, ld.exposure)); err != nil {
					return rec, diag, err
				}
			} else {
				ld.fraction, ld.matched = frac.Float64, true
			}
		}
		exposed = append(exposed, ld)
	}

	rec.LinksExposed = len(exposed)
	if len(exposed) == 0 {
		rec.DamageFraction = types.Float(0)
		return rec, diag, nil
	}

	// Bridge repair time depends on the total deck area damaged in this stage
	var bridgeDeck float64
	for _, ld := range exposed {
		if ld.matched && ld.fraction > 0 && ld.link.AssetType == constants.AssetBridge {
			bridgeDeck += size(ld.link)
		}
	}

	exposures := make([]float64, 0, len(exposed))
	fractions := make([]float64, 0, len(exposed))
	days := make([]float64, 0, len(exposed))
	for _, ld := range exposed {
		exposures = append(exposures, ld.exposure)
		if !ld.matched {
			rec.LinksUnmatched++
			continue
		}
		fractions = append(fractions, ld.fraction)

		if ld.fraction == 0 {
			days = append(days, 0)
			continue
		}

		unit, ok := e.unitCost(ld.link)
		if !ok {
			diag.UnmatchedRepairCost++
			if err := e.tolerate(MismatchRepairCost, event, ld.link.ID, fmt.Sprintf("%s/%d", ld.link.AssetType, ld.link.FacilityType)); err != nil {
				return rec, diag, err
			}
		} else {
			sz := size(ld.link)
			rec.DamageRepairCost += unit.DamageRepairCost * ld.fraction * sz
			rec.TotalRepairCost += unit.TotalRepairCost * ld.fraction * sz
		}

		severity := float64(ld.link.FacilityType)
		if ld.link.AssetType == constants.AssetBridge {
			severity = bridgeDeck
		}
		rt, ok := e.repairTime(ld.link.AssetType, severity)
		if !ok {
			diag.UnmatchedRepairTime++
			if err := e.tolerate(MismatchRepairTime, event, ld.link.ID, fmt.Sprintf("%s at severity %g", ld.link.AssetType, severity)); err != nil {
				return rec, diag, err
			}
			days = append(days, 0)
			continue
		}
		days = append(days, rt*ld.fraction)
	}

	rec.Exposure = stat.Mean(exposures, nil)
	if len(fractions) > 0 {
		rec.DamageFraction = types.Float(stat.Mean(fractions, nil))
	}
	if len(days) > 0 {
		rec.RepairDays = stat.Mean(days, nil)
	}
	return rec, diag, nil
}

func (e *Estimator) unitCost(l types.Link) (tables.RepairCostRow, bool) {
	if r, ok := e.costs[costKey{asset: l.AssetType, facility: l.FacilityType}]; ok {
		return r, true
	}
	r, ok := e.costs[costKey{asset: l.AssetType, facility: constants.AnyFacility}]
	return r, ok
}

func (e *Estimator) repairTime(asset string, severity float64) (float64, bool) {
	for _, r := range e.in.RepairTime {
		if r.AssetType == asset && r.MinSeverity <= severity && severity < r.MaxSeverity {
			return r.RepairTime, true
		}
	}
	return 0, false
}

// size returns deck square feet for bridges and lane-miles otherwise
func size(l types.Link) float64 {
	if l.AssetType == constants.AssetBridge {
		return l.LengthMiles * constants.FeetPerMile * float64(l.Lanes) * constants.BridgeDeckWidthFeet
	}
	return l.LengthMiles * float64(l.Lanes)
}

// EventRepairCost returns the repair cost charged for one event occurrence:
// the largest stage damage-repair cost.
func EventRepairCost(records []types.DamageRecord) float64 {
	var max float64
	for _, r := range records {
		if r.DamageRepairCost > max {
			max = r.DamageRepairCost
		}
	}
	return max
}
