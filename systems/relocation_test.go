package systems

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/pthm-cable/segregation/components"
)

// StepSuite groups tests for the step engine.
type StepSuite struct {
	suite.Suite
	rng *rand.Rand
}

func (s *StepSuite) SetupTest() {
	s.rng = rand.New(rand.NewSource(42))
}

func (s *StepSuite) initialize(size int, fractionEmpty, fractionA float64) *Grid {
	g, err := Initialize(size, fractionEmpty, fractionA, s.rng)
	require.NoError(s.T(), err)
	return g
}

// TestZeroThresholdNeverMoves: every agent is content at threshold 0.
func (s *StepSuite) TestZeroThresholdNeverMoves() {
	g := s.initialize(20, 0.1, 0.5)
	before := g.Snapshot()

	for tick := 0; tick < 50; tick++ {
		res := Step(g, s.rng, 0.0, 100, nil)
		require.False(s.T(), res.Moved, "tick %d", tick)
		require.Equal(s.T(), 0, res.Unsatisfied)
		require.Equal(s.T(), 100, res.Sampled)
	}
	require.Equal(s.T(), before, g.Snapshot())
}

// TestUnreachableThresholdChurns: above 1 nobody with a neighbor is content.
func (s *StepSuite) TestUnreachableThresholdChurns() {
	g := s.initialize(20, 0.1, 0.5)
	census := g.Census()

	moves := 0
	for tick := 0; tick < 20; tick++ {
		res := Step(g, s.rng, 1.01, 100, nil)
		require.True(s.T(), res.Moved, "tick %d", tick)
		moves += res.Relocations
	}
	require.Greater(s.T(), moves, 20*50)
	require.Equal(s.T(), census, g.Census())
	require.NoError(s.T(), g.CheckIndex())
}

// TestInvariantsHoldAcrossSteps: cell codes stay valid, the empty index
// stays a bijection and the population is conserved after every tick.
func (s *StepSuite) TestInvariantsHoldAcrossSteps() {
	g := s.initialize(30, 0.15, 0.4)
	census := g.Census()

	for tick := 0; tick < 200; tick++ {
		Step(g, s.rng, 0.5, 90, nil)
		require.NoError(s.T(), g.CheckIndex(), "tick %d", tick)
		require.Equal(s.T(), census, g.Census(), "tick %d", tick)
	}
}

// TestRelocationSwapsIntoEmptyCell: the only unhappy agent moves into the
// only empty cell and the index now points at the vacated cell.
func (s *StepSuite) TestRelocationSwapsIntoEmptyCell() {
	g, err := NewGridFromRows([][]components.Cell{
		{B, B, B},
		{B, A, B},
		{B, B, E},
	})
	require.NoError(s.T(), err)

	var from, to components.Coord
	calls := 0
	observe := func(f, t components.Coord) {
		from, to = f, t
		calls++
	}

	var res StepResult
	for i := 0; i < 1000 && !res.Moved; i++ {
		res = Step(g, s.rng, 0.5, 1, observe)
	}

	require.True(s.T(), res.Moved)
	require.Equal(s.T(), 1, calls)
	require.Equal(s.T(), components.Coord{X: 1, Y: 1}, from)
	require.Equal(s.T(), components.Coord{X: 2, Y: 2}, to)
	require.Equal(s.T(), E, g.At(1, 1))
	require.Equal(s.T(), A, g.At(2, 2))
	require.Equal(s.T(), 1, g.EmptyCount())
	require.Equal(s.T(), components.Coord{X: 1, Y: 1}, g.EmptyAt(0))
	require.Equal(s.T(), Census{Empty: 1, A: 1, B: 7}, g.Census())
}

// TestObserverSeesEveryMove: the observer fires once per relocation and
// always reports a vacated cell that is now empty or reoccupied later.
func (s *StepSuite) TestObserverSeesEveryMove() {
	g := s.initialize(15, 0.2, 0.5)

	for tick := 0; tick < 30; tick++ {
		calls := 0
		res := Step(g, s.rng, 0.6, 50, func(from, to components.Coord) {
			calls++
			require.NotEqual(s.T(), from, to)
			require.True(s.T(), g.At(to.X, to.Y).Occupied())
		})
		require.Equal(s.T(), res.Relocations, calls)
		require.Equal(s.T(), res.Moved, calls > 0)
	}
}

// TestFullGridStrandsUnhappyAgents: with no empty cell nobody can move.
func (s *StepSuite) TestFullGridStrandsUnhappyAgents() {
	g, err := NewGridFromRows([][]components.Cell{
		{A, B, A},
		{B, A, B},
		{A, B, A},
	})
	require.NoError(s.T(), err)
	before := g.Snapshot()

	res := Step(g, s.rng, 1.01, 25, nil)
	require.False(s.T(), res.Moved)
	require.Equal(s.T(), 25, res.Sampled)
	require.Equal(s.T(), 25, res.Unsatisfied)
	require.Equal(s.T(), 25, res.Stranded)
	require.Equal(s.T(), 0, res.Relocations)
	require.Equal(s.T(), before, g.Snapshot())
}

// TestSameSeedSameTrajectory: the engine draws only from the given source.
func (s *StepSuite) TestSameSeedSameTrajectory() {
	run := func() []components.Cell {
		rng := rand.New(rand.NewSource(7))
		g, err := Initialize(20, 0.1, 0.5, rng)
		require.NoError(s.T(), err)
		for i := 0; i < 40; i++ {
			Step(g, rng, 0.4, 60, nil)
		}
		return g.Snapshot()
	}
	require.Equal(s.T(), run(), run())
}

func TestStepSuite(t *testing.T) {
	suite.Run(t, new(StepSuite))
}
