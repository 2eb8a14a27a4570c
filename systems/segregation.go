package systems

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// ErrNoSimilarity is returned when no cell has a defined similarity,
// e.g. an all-empty grid or one where every agent is isolated.
var ErrNoSimilarity = errors.New("no cell has a defined neighbor similarity")

// SimilarityField returns the defined similarity of every cell, row-major.
// Empty cells and isolated agents are skipped.
func SimilarityField(g *Grid) []float64 {
	field := make([]float64, 0, len(g.cells)-len(g.empty))
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			if v, ok := NeighborSimilarity(g, x, y).Value(); ok {
				field = append(field, v)
			}
		}
	}
	return field
}

// AverageSimilarity is the segregation metric: the arithmetic mean of every
// defined neighbor similarity on the grid.
func AverageSimilarity(g *Grid) (float64, error) {
	field := SimilarityField(g)
	if len(field) == 0 {
		return 0, ErrNoSimilarity
	}
	return stat.Mean(field, nil), nil
}

// UnsatisfiedCount scans the whole grid and counts agents below threshold.
func UnsatisfiedCount(g *Grid, threshold float64) int {
	n := 0
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			if !IsSatisfied(g, x, y, threshold) {
				n++
			}
		}
	}
	return n
}
