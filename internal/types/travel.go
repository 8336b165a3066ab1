package types

import "fmt"

// Mode is a travel mode with its own monetization rates
type Mode string

const (
	ModeCar       Mode = "car"
	ModeBus       Mode = "bus"
	ModeLightRail Mode = "light_rail"
	ModeHeavyRail Mode = "heavy_rail"
)

// Modes is the fixed mode enumeration, in reporting order
var Modes = []Mode{ModeCar, ModeBus, ModeLightRail, ModeHeavyRail}

// ParseMode maps a CSV/JSON mode name to a Mode. An empty name means the
// snapshot carries only aggregate values, which are attributed to car.
func ParseMode(s string) (Mode, error) {
	if s == "" || s == "all" {
		return ModeCar, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown travel mode %q", s)
}

// ModeMetrics holds the aggregate travel outputs for one mode
type ModeMetrics struct {
	Trips float64 `json:"trips"`
	Miles float64 `json:"miles"`
	Hours float64 `json:"hours"`
}

// Add returns the element-wise sum of two metric sets
func (m ModeMetrics) Add(o ModeMetrics) ModeMetrics {
	return ModeMetrics{Trips: m.Trips + o.Trips, Miles: m.Miles + o.Miles, Hours: m.Hours + o.Hours}
}

// Scale multiplies every metric by f
func (m ModeMetrics) Scale(f float64) ModeMetrics {
	return ModeMetrics{Trips: m.Trips * f, Miles: m.Miles * f, Hours: m.Hours * f}
}

// Snapshot is one externally produced travel-metrics result. It is treated
// as read-only once loaded.
type Snapshot struct {
	Key      SnapshotKey          `json:"key"`
	YearType YearType             `json:"year_type"`
	Modes    map[Mode]ModeMetrics `json:"modes"`
}

// Total sums the snapshot over all modes
func (s Snapshot) Total() ModeMetrics {
	var t ModeMetrics
	for _, m := range Modes {
		t = t.Add(s.Modes[m])
	}
	return t
}
