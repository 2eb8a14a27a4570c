package systems

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/segregation/components"
)

func TestNeighborSimilarityEmptyCell(t *testing.T) {
	g := mustGrid(t, [][]components.Cell{
		{A, A, A},
		{A, E, A},
		{A, A, A},
	})
	assert.False(t, NeighborSimilarity(g, 1, 1).Defined())
}

func TestNeighborSimilarityIsolatedAgent(t *testing.T) {
	g := mustGrid(t, [][]components.Cell{
		{E, E, E, E},
		{E, A, E, E},
		{E, E, E, E},
		{E, E, E, E},
	})
	assert.False(t, NeighborSimilarity(g, 1, 1).Defined())
}

func TestNeighborSimilarityZeroIsDefined(t *testing.T) {
	g := mustGrid(t, [][]components.Cell{
		{B, B, B},
		{B, A, B},
		{B, B, B},
	})
	v, ok := NeighborSimilarity(g, 1, 1).Value()
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestNeighborSimilarityWrapsAtCorner(t *testing.T) {
	g := mustGrid(t, [][]components.Cell{
		{A, A, E, B},
		{A, B, E, E},
		{E, E, E, E},
		{B, E, E, A},
	})

	// (0,0) sees (3,3)=A (0,3)=B (1,3)=E (3,0)=B (1,0)=A (3,1)=E (0,1)=A (1,1)=B.
	v, ok := NeighborSimilarity(g, 0, 0).Value()
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-12)

	// (3,3) sees only (0,3)=B, (3,0)=B and (0,0)=A across the edges.
	v, ok = NeighborSimilarity(g, 3, 3).Value()
	require.True(t, ok)
	assert.InDelta(t, 1.0/3.0, v, 1e-12)
}

func TestNeighborSimilarityNoBoundaryEffects(t *testing.T) {
	// A uniform grid gives every cell, edge or interior, 8 same-type neighbors.
	rows := make([][]components.Cell, 5)
	for y := range rows {
		rows[y] = []components.Cell{B, B, B, B, B}
	}
	g := mustGrid(t, rows)

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			v, ok := NeighborSimilarity(g, x, y).Value()
			require.True(t, ok)
			require.Equal(t, 1.0, v, "cell (%d,%d)", x, y)
		}
	}
}

func TestNeighborSimilarityTranslationInvariant(t *testing.T) {
	// Shifting the pattern across the seam must not change the result.
	base := [][]components.Cell{
		{A, B, E, E, E},
		{B, A, E, E, E},
		{E, E, E, E, E},
		{E, E, E, E, E},
		{E, E, E, E, A},
	}
	g := mustGrid(t, base)
	want := NeighborSimilarity(g, 0, 0)

	for shift := 1; shift < 5; shift++ {
		shifted := make([][]components.Cell, 5)
		for y := range shifted {
			shifted[y] = make([]components.Cell, 5)
		}
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				shifted[(y+shift)%5][(x+shift)%5] = base[y][x]
			}
		}
		sg := mustGrid(t, shifted)
		assert.Equal(t, want, NeighborSimilarity(sg, shift, shift), "shift %d", shift)
	}
}

func TestIsSatisfied(t *testing.T) {
	g := mustGrid(t, [][]components.Cell{
		{A, A, E, B},
		{A, B, E, E},
		{E, E, E, E},
		{B, E, E, A},
	})
	isolated := mustGrid(t, [][]components.Cell{
		{E, E, E},
		{E, A, E},
		{E, E, E},
	})

	tests := []struct {
		name      string
		grid      *Grid
		x, y      int
		threshold float64
		want      bool
	}{
		{"empty cell", g, 2, 2, 1.0, true},
		{"isolated agent", isolated, 1, 1, 1.01, true},
		{"below threshold", g, 0, 0, 0.6, false},
		{"equal to threshold", g, 0, 0, 0.5, true},
		{"above threshold", g, 0, 0, 0.3, true},
		{"zero threshold", g, 0, 0, 0.0, true},
		{"unreachable threshold", g, 0, 0, 1.01, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSatisfied(tt.grid, tt.x, tt.y, tt.threshold))
		})
	}
}

func TestIsSatisfiedMatchesSimilarity(t *testing.T) {
	g, err := Initialize(25, 0.2, 0.5, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	for _, threshold := range []float64{0, 0.3, 0.5, 0.75, 1} {
		for y := 0; y < g.Size(); y++ {
			for x := 0; x < g.Size(); x++ {
				v, ok := NeighborSimilarity(g, x, y).Value()
				want := !ok || v >= threshold
				require.Equal(t, want, IsSatisfied(g, x, y, threshold))
			}
		}
	}
}
