package telemetry

import (
	"math"

	"github.com/pthm-cable/segregation/systems"
)

// Collector accumulates step results within tick windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32

	// Current window tracking
	windowStartTick int32

	// Counters for current window
	ticks       int
	sampled     int
	unsatisfied int
	relocations int
	stranded    int
	idleTicks   int
	lastIdle    bool // Most recent tick had no relocation
}

// NewCollector creates a new stats collector flushing every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowDurationTicks: int32(windowTicks)}
}

// RecordStep records the outcome of one tick.
func (c *Collector) RecordStep(res systems.StepResult) {
	c.ticks++
	c.sampled += res.Sampled
	c.unsatisfied += res.Unsatisfied
	c.relocations += res.Relocations
	c.stranded += res.Stranded
	c.lastIdle = !res.Moved
	if c.lastIdle {
		c.idleTicks++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Pending reports whether ticks were recorded since the last flush.
func (c *Collector) Pending() bool {
	return c.ticks > 0
}

// GridSample is the state of the grid and agent registry at window end.
type GridSample struct {
	Census            systems.Census
	Similarities      []float64 // Defined neighbor similarities
	Segregation       float64   // NaN when undefined
	UnsatisfiedAgents int
	AgentMoves        []float64 // Moves per registered agent
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, sample GridSample) WindowStats {
	var moveRate float64
	if c.sampled > 0 {
		moveRate = float64(c.relocations) / float64(c.sampled)
	}

	_, p10, p50, p90 := ComputeDistribution(sample.Similarities)

	var unsatisfiedShare float64
	if occupied := sample.Census.Occupied(); occupied > 0 {
		unsatisfiedShare = float64(sample.UnsatisfiedAgents) / float64(occupied)
	}

	movesMean, _, _, movesP90 := ComputeDistribution(sample.AgentMoves)
	var settledShare float64
	if len(sample.AgentMoves) > 0 {
		settled := 0
		for _, m := range sample.AgentMoves {
			if m == 0 {
				settled++
			}
		}
		settledShare = float64(settled) / float64(len(sample.AgentMoves))
	}

	segregation := sample.Segregation
	if len(sample.Similarities) == 0 {
		segregation = math.NaN()
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		Ticks:           c.ticks,

		Empty: sample.Census.Empty,
		A:     sample.Census.A,
		B:     sample.Census.B,

		Sampled:     c.sampled,
		Unsatisfied: c.unsatisfied,
		Relocations: c.relocations,
		Stranded:    c.stranded,
		IdleTicks:   c.idleTicks,
		Converged:   c.ticks > 0 && c.lastIdle,
		MoveRate:    moveRate,

		Segregation:       segregation,
		SimilarityP10:     p10,
		SimilarityP50:     p50,
		SimilarityP90:     p90,
		UnsatisfiedAgents: sample.UnsatisfiedAgents,
		UnsatisfiedShare:  unsatisfiedShare,

		AgentMovesMean: movesMean,
		AgentMovesP90:  movesP90,
		SettledShare:   settledShare,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.ticks = 0
	c.sampled = 0
	c.unsatisfied = 0
	c.relocations = 0
	c.stranded = 0
	c.idleTicks = 0
	c.lastIdle = false

	return stats
}
