// Package temporal extends two modeled years over the analysis horizon and
// discounts annual streams to present value.
package temporal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Horizon describes the analysis period and the two modeled years
type Horizon struct {
	StartYear  int
	EndYear    int
	BaseYear   int
	FutureYear int
	DollarYear int
}

// Years returns the number of analysis years, H = end - start + 1
func (h Horizon) Years() int {
	return h.EndYear - h.StartYear + 1
}

// Validate rejects an empty horizon or a degenerate interpolation range
func (h Horizon) Validate() error {
	if h.Years() < 1 {
		return fmt.Errorf("end year %d precedes start year %d", h.EndYear, h.StartYear)
	}
	if h.FutureYear == h.BaseYear {
		return fmt.Errorf("future year equals base year %d", h.BaseYear)
	}
	return nil
}

// Interpolate returns the value of a quantity in each analysis year, linear
// through (base year, base) and (future year, future). Years outside that
// range are extrapolated, not clamped.
func (h Horizon) Interpolate(base, future float64) []float64 {
	out := make([]float64, h.Years())
	span := float64(h.FutureYear - h.BaseYear)
	for i := range out {
		pos := float64(h.StartYear+i-h.BaseYear) / span
		out[i] = base + pos*(future-base)
	}
	return out
}

// ProbabilityStream returns the event probability of each analysis year,
// starting at p0 and compounding by factor every year.
func (h Horizon) ProbabilityStream(p0, factor float64) []float64 {
	out := make([]float64, h.Years())
	for i := range out {
		if i == 0 {
			out[i] = p0
			continue
		}
		out[i] = out[i-1] * factor
	}
	return out
}

// DiscountStream returns the discount divisor of each analysis year relative
// to the dollar year.
func (h Horizon) DiscountStream(rate float64) []float64 {
	out := make([]float64, h.Years())
	for i := range out {
		if i == 0 {
			out[i] = math.Pow(1+rate, float64(h.StartYear-h.DollarYear))
			continue
		}
		out[i] = out[i-1] * (1 + rate)
	}
	return out
}

// PV returns sum(x[i] * p[i] / d[i]). A nil p means probability one.
func PV(x, p, d []float64) float64 {
	terms := make([]float64, len(x))
	for i := range x {
		prob := 1.0
		if p != nil {
			prob = p[i]
		}
		terms[i] = x[i] * prob / d[i]
	}
	return floats.Sum(terms)
}

// Constant returns a stream holding v in every analysis year
func (h Horizon) Constant(v float64) []float64 {
	out := make([]float64, h.Years())
	for i := range out {
		out[i] = v
	}
	return out
}
