package systems

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/segregation/components"
)

func TestAverageSimilarityUniformGrid(t *testing.T) {
	g, err := Initialize(10, 0, 1.0, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	avg, err := AverageSimilarity(g)
	require.NoError(t, err)
	assert.Equal(t, 1.0, avg)
}

func TestAverageSimilarityRandomGridNearHalf(t *testing.T) {
	g, err := Initialize(200, 0, 0.5, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	avg, err := AverageSimilarity(g)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, avg, 0.05)
}

func TestAverageSimilarityAllEmpty(t *testing.T) {
	g, err := Initialize(6, 1.0, 0.5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = AverageSimilarity(g)
	assert.ErrorIs(t, err, ErrNoSimilarity)
}

func TestAverageSimilarityOnlyIsolatedAgents(t *testing.T) {
	g := mustGrid(t, [][]components.Cell{
		{A, E, E, E},
		{E, E, E, E},
		{E, E, B, E},
		{E, E, E, E},
	})

	_, err := AverageSimilarity(g)
	assert.ErrorIs(t, err, ErrNoSimilarity)
}

func TestAverageSimilaritySkipsUndefined(t *testing.T) {
	// Checkerboard agents see same-type diagonals and other-type orthogonals.
	// The lone empty cell is skipped.
	g := mustGrid(t, [][]components.Cell{
		{A, B, A, B},
		{B, A, B, A},
		{A, B, A, B},
		{B, A, B, E},
	})

	field := SimilarityField(g)
	assert.Len(t, field, 15)

	avg, err := AverageSimilarity(g)
	require.NoError(t, err)

	var sum float64
	for _, v := range field {
		sum += v
	}
	assert.InDelta(t, sum/15, avg, 1e-12)
}

func TestUnsatisfiedCount(t *testing.T) {
	g := mustGrid(t, [][]components.Cell{
		{B, B, B},
		{B, A, B},
		{B, B, E},
	})

	assert.Equal(t, 1, UnsatisfiedCount(g, 0.5))
	assert.Equal(t, 0, UnsatisfiedCount(g, 0))
	assert.Equal(t, 8, UnsatisfiedCount(g, 1.01))
}

func TestSegregationRisesUnderModerateThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	g, err := Initialize(40, 0.1, 0.5, rng)
	require.NoError(t, err)

	start, err := AverageSimilarity(g)
	require.NoError(t, err)

	for tick := 0; tick < 300; tick++ {
		if !Step(g, rng, 0.5, 400, nil).Moved {
			break
		}
	}

	end, err := AverageSimilarity(g)
	require.NoError(t, err)
	assert.Greater(t, end, start+0.1)
}
