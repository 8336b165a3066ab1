package hazard

import "github.com/transportresilience/rdr/internal/types"

// Stages splits a path into maximal runs of constant level, numbered from 1
func Stages(levels []int) []types.Stage {
	stages := make([]types.Stage, 0, 4)
	for i, l := range levels {
		if i > 0 && l == levels[i-1] {
			stages[len(stages)-1].Days++
			continue
		}
		stages = append(stages, types.Stage{Stage: len(stages) + 1, HazardLevel: l, Days: 1})
	}
	return stages
}
