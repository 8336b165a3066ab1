// Package hazard builds day-by-day hazard recovery paths and splits them into
// constant-level stages.
package hazard

import (
	"fmt"
	"math"
	"sort"

	"github.com/transportresilience/rdr/internal/types"
)

// RecoveryPolicy decides how long the recession segment lasts. With type
// "days" Length is a fixed day count; with "percent" it is a fraction of the
// plateau duration (0.5 means half as long).
type RecoveryPolicy struct {
	Type   string
	Length float64
}

// Params holds the duration sampling settings shared by every event
type Params struct {
	MinDuration      int
	MaxDuration      int
	NumDurationCases int
	Recovery         RecoveryPolicy
}

// Event is a hazard event with its discrete intensity levels. The highest
// level is the initial (peak) level.
type Event struct {
	Name   string
	Levels []int
}

// Initial returns the peak level of the event
func (e Event) Initial() int {
	initial := 0
	for i, l := range e.Levels {
		if i == 0 || l > initial {
			initial = l
		}
	}
	return initial
}

// SubLevels returns the distinct levels strictly below the initial level,
// nearest-to-initial first.
func (e Event) SubLevels() []int {
	initial := e.Initial()
	seen := make(map[int]bool, len(e.Levels))
	subs := make([]int, 0, len(e.Levels))
	for _, l := range e.Levels {
		if l < initial && !seen[l] {
			seen[l] = true
			subs = append(subs, l)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(subs)))
	return subs
}

// Path is the full recovery path of one (duration, recession) variant
type Path struct {
	InitialLevel int
	Duration     int
	Recession    int
	Levels       []int
}

// Total returns the path length in days
func (p Path) Total() int {
	return p.Duration + p.Recession
}

// Variant returns the (duration, recession) pair identifying this path
func (p Path) Variant() types.HazardVariant {
	return types.HazardVariant{Duration: p.Duration, Recession: p.Recession}
}

// SampleDurations spreads n integer durations evenly over [min, max] and
// drops duplicates produced by rounding, so fewer than n values may come back.
func SampleDurations(min, max, n int) []int {
	if n <= 1 || max == min {
		return []int{min}
	}

	step := float64(max-min) / float64(n-1)
	seen := make(map[int]bool, n)
	durations := make([]int, 0, n)
	for i := 0; i < n; i++ {
		d := int(math.Round(float64(min) + float64(i)*step))
		if !seen[d] {
			seen[d] = true
			durations = append(durations, d)
		}
	}
	return durations
}

// RecessionLength returns the number of recession days for a plateau of d days
func RecessionLength(d int, policy RecoveryPolicy) int {
	if policy.Type == "percent" {
		return int(math.Round(float64(d) * policy.Length))
	}
	return int(policy.Length)
}

// BuildPath lays out d days at the initial level followed by r days drawn
// from subLevels (sorted descending) at evenly spaced indexes. Without
// sub-levels the recession is empty and the realized recession is zero.
func BuildPath(initial int, subLevels []int, d, r int) Path {
	if len(subLevels) == 0 || r < 0 {
		r = 0
	}

	levels := make([]int, 0, d+r)
	for i := 0; i < d; i++ {
		levels = append(levels, initial)
	}

	k := len(subLevels)
	for j := 0; j < r; j++ {
		idx := 0
		if r > 1 {
			idx = int(math.Round(float64(j) * float64(k-1) / float64(r-1)))
		}
		levels = append(levels, subLevels[idx])
	}

	return Path{InitialLevel: initial, Duration: d, Recession: r, Levels: levels}
}

// GeneratePaths builds every recovery-path variant of an event, in
// ascending duration order.
func GeneratePaths(event Event, params Params) ([]Path, error) {
	if len(event.Levels) == 0 {
		return nil, fmt.Errorf("hazard event %q has no levels", event.Name)
	}
	if params.MinDuration < 1 || params.MaxDuration < params.MinDuration {
		return nil, fmt.Errorf("invalid duration bounds [%d, %d]", params.MinDuration, params.MaxDuration)
	}

	initial := event.Initial()
	subs := event.SubLevels()
	durations := SampleDurations(params.MinDuration, params.MaxDuration, params.NumDurationCases)

	paths := make([]Path, 0, len(durations))
	for _, d := range durations {
		paths = append(paths, BuildPath(initial, subs, d, RecessionLength(d, params.Recovery)))
	}
	return paths, nil
}
