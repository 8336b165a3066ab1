// Package bca monetizes travel and repair impacts, discounts them into
// benefit-cost results and ranks projects by regret.
package bca

import (
	"github.com/transportresilience/rdr/internal/types"
	"github.com/transportresilience/rdr/pkg/config"
)

// Rates holds the monetization rates of every mode
type Rates map[types.Mode]config.ModeRates

// RatesFromConfig converts the configured mode table. Unknown mode names were
// already rejected by config validation.
func RatesFromConfig(m config.MonetizationData) Rates {
	r := make(Rates, len(m.Modes))
	for name, rates := range m.Modes {
		r[types.Mode(name)] = rates
	}
	return r
}

// Cost is the monetized travel cost of one set of metrics
type Cost struct {
	TravelTime float64
	Operating  float64
	Safety     float64
	Noise      float64
	Emissions  float64
}

// Monetize prices one mode's metrics at that mode's rates
func Monetize(m types.ModeMetrics, r config.ModeRates) Cost {
	return Cost{
		TravelTime: m.Hours * r.ValueOfTime,
		Operating:  m.Miles * r.OperatingCostPerMile,
		Safety:     m.Miles * r.SafetyCostPerMile,
		Noise:      m.Miles * r.NoiseCostPerMile,
		Emissions:  m.Miles * r.CO2CostPerMile,
	}
}

// Add sums two costs term by term
func (c Cost) Add(o Cost) Cost {
	return Cost{
		TravelTime: c.TravelTime + o.TravelTime,
		Operating:  c.Operating + o.Operating,
		Safety:     c.Safety + o.Safety,
		Noise:      c.Noise + o.Noise,
		Emissions:  c.Emissions + o.Emissions,
	}
}

// PerTrip returns the cost of an average trip excluding emissions, which
// are discounted separately. Zero trips contribute nothing.
func (c Cost) PerTrip(trips float64) float64 {
	if trips == 0 {
		return 0
	}
	return (c.TravelTime + c.Operating + c.Safety + c.Noise) / trips
}

// EventMetrics holds the stage-day weighted travel totals of one hazard
// occurrence, per modeled year and mode.
type EventMetrics map[types.YearType]map[types.Mode]types.ModeMetrics

// SnapshotFunc fetches the snapshot of one hazard level and modeled year
type SnapshotFunc func(level int, yt types.YearType) (types.Snapshot, error)

// EventTotals sums stage snapshots weighted by the days each stage lasts
func EventTotals(stages []types.Stage, fetch SnapshotFunc) (EventMetrics, error) {
	out := make(EventMetrics, len(types.YearTypes))
	for _, yt := range types.YearTypes {
		byMode := make(map[types.Mode]types.ModeMetrics, len(types.Modes))
		for _, st := range stages {
			snap, err := fetch(st.HazardLevel, yt)
			if err != nil {
				return nil, err
			}
			for mode, m := range snap.Modes {
				byMode[mode] = byMode[mode].Add(m.Scale(float64(st.Days)))
			}
		}
		out[yt] = byMode
	}
	return out, nil
}
