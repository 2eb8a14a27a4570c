package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/segregation/systems"
)

func TestCollectorShouldFlush(t *testing.T) {
	c := NewCollector(10)

	if c.ShouldFlush(9) {
		t.Error("should not flush before window ends")
	}
	if !c.ShouldFlush(10) {
		t.Error("should flush at window end")
	}

	c.Flush(10, GridSample{})
	if c.ShouldFlush(19) {
		t.Error("window should restart at last flush")
	}
	if !c.ShouldFlush(20) {
		t.Error("should flush at second window end")
	}
}

func TestCollectorMinimumWindow(t *testing.T) {
	c := NewCollector(0)
	if c.ShouldFlush(0) {
		t.Error("empty window should not flush")
	}
	if !c.ShouldFlush(1) {
		t.Error("window of 0 ticks should be clamped to 1")
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(3)
	c.RecordStep(systems.StepResult{Moved: true, Sampled: 10, Unsatisfied: 4, Relocations: 4})
	c.RecordStep(systems.StepResult{Moved: false, Sampled: 10, Unsatisfied: 2, Stranded: 2})
	c.RecordStep(systems.StepResult{Moved: true, Sampled: 10, Unsatisfied: 1, Relocations: 1})

	if !c.Pending() {
		t.Fatal("expected pending ticks")
	}

	stats := c.Flush(3, GridSample{
		Census:            systems.Census{Empty: 2, A: 4, B: 4},
		Similarities:      []float64{0.5, 0.5, 1, 1},
		Segregation:       0.75,
		UnsatisfiedAgents: 2,
		AgentMoves:        []float64{0, 0, 0, 1, 1, 3, 0, 0},
	})

	if stats.Ticks != 3 || stats.Sampled != 30 || stats.Unsatisfied != 7 {
		t.Errorf("counters = ticks %d sampled %d unsatisfied %d", stats.Ticks, stats.Sampled, stats.Unsatisfied)
	}
	if stats.Relocations != 5 || stats.Stranded != 2 || stats.IdleTicks != 1 {
		t.Errorf("moves = relocations %d stranded %d idle %d", stats.Relocations, stats.Stranded, stats.IdleTicks)
	}
	if stats.Converged {
		t.Error("window ending on a tick with relocations should not be converged")
	}
	if math.Abs(stats.MoveRate-5.0/30.0) > 1e-9 {
		t.Errorf("move rate = %v", stats.MoveRate)
	}
	if stats.Segregation != 0.75 {
		t.Errorf("segregation = %v, want 0.75", stats.Segregation)
	}
	if math.Abs(stats.UnsatisfiedShare-0.25) > 1e-9 {
		t.Errorf("unsatisfied share = %v, want 0.25", stats.UnsatisfiedShare)
	}
	if math.Abs(stats.SettledShare-5.0/8.0) > 1e-9 {
		t.Errorf("settled share = %v, want 0.625", stats.SettledShare)
	}
	if math.Abs(stats.AgentMovesMean-5.0/8.0) > 1e-9 {
		t.Errorf("agent moves mean = %v, want 0.625", stats.AgentMovesMean)
	}
	if stats.Empty != 2 || stats.A != 4 || stats.B != 4 {
		t.Errorf("census = %d/%d/%d", stats.Empty, stats.A, stats.B)
	}
	if c.Pending() {
		t.Error("flush should reset counters")
	}
}

func TestCollectorFlushUndefinedSegregation(t *testing.T) {
	c := NewCollector(1)
	c.RecordStep(systems.StepResult{Sampled: 4})

	stats := c.Flush(1, GridSample{Census: systems.Census{Empty: 4}, Segregation: 0})
	if stats.SegregationDefined() {
		t.Errorf("segregation = %v, want NaN without similarities", stats.Segregation)
	}
	if stats.UnsatisfiedShare != 0 || stats.SettledShare != 0 {
		t.Error("shares should be zero without agents")
	}
}

func TestCollectorConvergedOnFinalIdleTick(t *testing.T) {
	c := NewCollector(5)
	c.RecordStep(systems.StepResult{Moved: true, Sampled: 10, Unsatisfied: 6, Relocations: 6})
	c.RecordStep(systems.StepResult{Moved: true, Sampled: 10, Unsatisfied: 3, Relocations: 3})
	c.RecordStep(systems.StepResult{Moved: false, Sampled: 10})

	stats := c.Flush(3, GridSample{Similarities: []float64{1}, Segregation: 1})
	if !stats.Converged {
		t.Errorf("window with relocations ending on an idle tick should be converged: %+v", stats)
	}
	if stats.Relocations != 9 {
		t.Errorf("relocations = %d, want 9", stats.Relocations)
	}

	if next := c.Flush(3, GridSample{}); next.Converged {
		t.Error("empty window should not be converged")
	}
}
