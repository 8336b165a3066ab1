package bca

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/types"
)

type rollupKey struct {
	project      string
	projectGroup string
	noHazard     int
}

type eventKey struct {
	rollupKey
	event string
}

// Rollup collapses hazard variants and events into one summary per
// (project, group, no-hazard scenario). Each event's variants are averaged,
// then the events are summed. Project cost is counted once.
func Rollup(results []types.BenefitCostResult) []types.RankedSummary {
	benefits := make(map[eventKey][]float64)
	events := make(map[rollupKey][]string)
	nets := make(map[rollupKey][]float64)
	first := make(map[rollupKey]types.BenefitCostResult)
	order := make([]rollupKey, 0)

	for _, r := range results {
		s := r.Scenario
		rk := rollupKey{project: s.Project, projectGroup: s.ProjectGroup, noHazard: s.IDScenarioNoHazard}
		if _, ok := first[rk]; !ok {
			first[rk] = r
			order = append(order, rk)
		}
		ek := eventKey{rollupKey: rk, event: s.HazardEvent}
		if _, ok := benefits[ek]; !ok {
			events[rk] = append(events[rk], s.HazardEvent)
		}
		benefits[ek] = append(benefits[ek], r.PVBenefits)
		nets[rk] = append(nets[rk], r.NetBenefit)
	}

	// Events are summed in name order so tied projects get bit-identical totals
	totals := make(map[rollupKey]float64, len(order))
	for _, rk := range order {
		names := events[rk]
		sort.Strings(names)
		for _, event := range names {
			totals[rk] += stat.Mean(benefits[eventKey{rollupKey: rk, event: event}], nil)
		}
	}

	out := make([]types.RankedSummary, 0, len(order))
	for _, rk := range order {
		r := first[rk]
		cost := r.NetCost()
		out = append(out, types.RankedSummary{
			Project:            rk.project,
			ProjectGroup:       rk.projectGroup,
			Asset:              r.Asset,
			IDScenarioNoHazard: rk.noHazard,
			Economic:           r.Scenario.Economic,
			Elasticity:         r.Scenario.Elasticity,
			FrequencyFactor:    r.Scenario.FrequencyFactor,
			TotalBenefit:       totals[rk],
			TotalCost:          cost,
			TotalNetBenefit:    totals[rk] - cost,
			MeanNetBenefit:     stat.Mean(nets[rk], nil),
		})
	}
	return out
}

// DenseRank ranks values in descending order. Equal values share a rank and
// the next distinct value gets the next integer.
func DenseRank(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })

	ranks := make([]int, len(values))
	rank := 0
	for i, j := range idx {
		if i == 0 || values[j] != values[idx[i-1]] {
			rank++
		}
		ranks[j] = rank
	}
	return ranks
}

// Rank fills the three regret ranks of every summary in place
func Rank(summaries []types.RankedSummary) {
	rankAll(summaries)

	byScenario := make(map[int][]int)
	for i, s := range summaries {
		byScenario[s.IDScenarioNoHazard] = append(byScenario[s.IDScenarioNoHazard], i)
	}
	for _, members := range byScenario {
		values := make([]float64, len(members))
		for k, i := range members {
			values[k] = summaries[i].TotalNetBenefit
		}
		for k, rank := range DenseRank(values) {
			summaries[members[k]].RegretScenario = rank
		}
		rankAssets(summaries, members)
	}
}

// rankAll ranks project/group pairs by their mean net benefit across
// no-hazard scenarios.
func rankAll(summaries []types.RankedSummary) {
	type pair struct{ project, group string }
	values := make(map[pair][]float64)
	order := make([]pair, 0)
	for _, s := range summaries {
		p := pair{s.Project, s.ProjectGroup}
		if _, ok := values[p]; !ok {
			order = append(order, p)
		}
		values[p] = append(values[p], s.TotalNetBenefit)
	}

	means := make([]float64, len(order))
	for i, p := range order {
		means[i] = stat.Mean(values[p], nil)
	}
	rankOf := make(map[pair]int, len(order))
	for i, rank := range DenseRank(means) {
		rankOf[order[i]] = rank
	}
	for i := range summaries {
		summaries[i].RegretAll = rankOf[pair{summaries[i].Project, summaries[i].ProjectGroup}]
	}
}

// rankAssets ranks within each protected asset of one no-hazard scenario.
// Baselines compete in every asset group and keep their best rank.
func rankAssets(summaries []types.RankedSummary, members []int) {
	var baselines []int
	byAsset := make(map[string][]int)
	assets := make([]string, 0)
	for _, i := range members {
		summaries[i].RegretAsset = 0
		if summaries[i].Project == constants.BaselineProject {
			baselines = append(baselines, i)
			continue
		}
		a := summaries[i].Asset
		if _, ok := byAsset[a]; !ok {
			assets = append(assets, a)
		}
		byAsset[a] = append(byAsset[a], i)
	}
	if len(assets) == 0 {
		assets = append(assets, "")
	}

	for _, a := range assets {
		group := append(append([]int{}, byAsset[a]...), baselines...)
		values := make([]float64, len(group))
		for k, i := range group {
			values[k] = summaries[i].TotalNetBenefit
		}
		for k, rank := range DenseRank(values) {
			i := group[k]
			if summaries[i].RegretAsset == 0 || rank < summaries[i].RegretAsset {
				summaries[i].RegretAsset = rank
			}
		}
	}
}
