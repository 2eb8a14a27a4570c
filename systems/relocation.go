package systems

import (
	"math/rand"

	"github.com/pthm-cable/segregation/components"
)

// MoveObserver is called after each relocation with the vacated and the
// newly occupied coordinate.
type MoveObserver func(from, to components.Coord)

// StepResult summarizes one tick of the step engine.
type StepResult struct {
	Moved       bool // At least one relocation happened
	Sampled     int  // Cells drawn this tick
	Unsatisfied int  // Draws that found an unsatisfied agent
	Relocations int  // Agents moved
	Stranded    int  // Unsatisfied agents left in place for lack of empty cells
}

// Step runs one tick: agentsPerStep cells are drawn uniformly over the whole
// grid (empty draws are always satisfied and do nothing). Each unsatisfied
// agent moves to an empty cell picked uniformly from the empty index.
// Moves apply immediately, so later draws in the same tick see them.
// onMove may be nil.
func Step(g *Grid, rng *rand.Rand, threshold float64, agentsPerStep int, onMove MoveObserver) StepResult {
	var res StepResult

	for i := 0; i < agentsPerStep; i++ {
		x := rng.Intn(g.size)
		y := rng.Intn(g.size)
		res.Sampled++

		if IsSatisfied(g, x, y, threshold) {
			continue
		}
		res.Unsatisfied++

		if len(g.empty) == 0 {
			res.Stranded++
			continue
		}

		from := components.Coord{X: x, Y: y}
		to := g.relocate(from, rng.Intn(len(g.empty)))
		res.Relocations++
		if onMove != nil {
			onMove(from, to)
		}
	}

	res.Moved = res.Relocations > 0
	return res
}
