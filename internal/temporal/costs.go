package temporal

import "github.com/transportresilience/rdr/internal/types"

// CostOptions toggles which project cost streams are recognized
type CostOptions struct {
	Redeployment bool
	Maintenance  bool
}

// CostStreams holds the undiscounted annual cost streams of one project
type CostStreams struct {
	Capital     []float64
	Maintenance []float64
	Residual    []float64
}

// ProjectCosts lays a project's capital, maintenance and residual value over
// the horizon. Capital is spent in year 0 and, with redeployment, again every
// lifespan years. The unused share of the cycle covering the final year is
// credited back as residual value in that year.
func (h Horizon) ProjectCosts(p types.Project, opts CostOptions) CostStreams {
	n := h.Years()
	s := CostStreams{
		Capital:     make([]float64, n),
		Maintenance: make([]float64, n),
		Residual:    make([]float64, n),
	}
	if n == 0 {
		return s
	}

	s.Capital[0] = p.Cost
	lastCycleCost := p.Cost
	if opts.Redeployment && p.Lifespan > 0 {
		for y := p.Lifespan; y < n; y += p.Lifespan {
			s.Capital[y] = p.RedeploymentCost
			lastCycleCost = p.RedeploymentCost
		}
	}

	if p.Lifespan > 0 {
		// Without redeployment a project outlived by the horizon has nothing left
		used := n % p.Lifespan
		if used != 0 && (opts.Redeployment || n < p.Lifespan) {
			s.Residual[n-1] = lastCycleCost * float64(p.Lifespan-used) / float64(p.Lifespan)
		}
	}

	if opts.Maintenance {
		for i := range s.Maintenance {
			s.Maintenance[i] = p.AnnualMaintenance
		}
	}
	return s
}
