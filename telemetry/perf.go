package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase is a timed section of a simulation tick.
type Phase int

const (
	PhaseRelocation Phase = iota
	PhaseMetric
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{"relocation", "metric", "telemetry"}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// tickSample is the timing of one tick.
type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps tick timings for the last windowSize ticks.
type PerfCollector struct {
	samples []tickSample // ring buffer
	next    int
	count   int

	current    tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{samples: make([]tickSample, windowSize)}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = tickSample{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart, p.inPhase = phase, now, true
}

// EndTick closes the tick and stores it in the window.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.current.total = now.Sub(p.tickStart)

	p.samples[p.next] = p.current
	p.next = (p.next + 1) % len(p.samples)
	if p.count < len(p.samples) {
		p.count++
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.current.phases[p.phase] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// PerfStats summarizes the tick timings in the window.
type PerfStats struct {
	AvgTick        time.Duration
	MinTick        time.Duration
	MaxTick        time.Duration
	TicksPerSecond float64
	PhasePct       [numPhases]float64 // Share of average tick time, in percent
	Samples        int
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.count == 0 {
		return PerfStats{}
	}

	totals := make([]float64, p.count)
	var phaseSums [numPhases]float64
	for i, s := range p.samples[:p.count] {
		totals[i] = float64(s.total)
		for ph, d := range s.phases {
			phaseSums[ph] += float64(d)
		}
	}

	avg := stat.Mean(totals, nil)
	stats := PerfStats{
		AvgTick: time.Duration(avg),
		MinTick: time.Duration(floats.Min(totals)),
		MaxTick: time.Duration(floats.Max(totals)),
		Samples: p.count,
	}
	if avg > 0 {
		stats.TicksPerSecond = float64(time.Second) / avg
		sumTotal := avg * float64(p.count)
		for ph, sum := range phaseSums {
			stats.PhasePct[ph] = sum / sumTotal * 100
		}
	}
	return stats
}

// LogStats logs the window timings.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTick.Microseconds(),
		"max_tick_us", s.MaxTick.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for ph, pct := range s.PhasePct {
		attrs = append(attrs, Phase(ph).String()+"_pct", int(pct*10)/10.0)
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd     int32   `csv:"window_end"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	MinTickUS     int64   `csv:"min_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	RelocationPct float64 `csv:"relocation_pct"`
	MetricPct     float64 `csv:"metric_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		AvgTickUS:     s.AvgTick.Microseconds(),
		MinTickUS:     s.MinTick.Microseconds(),
		MaxTickUS:     s.MaxTick.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		RelocationPct: s.PhasePct[PhaseRelocation],
		MetricPct:     s.PhasePct[PhaseMetric],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
	}
}
