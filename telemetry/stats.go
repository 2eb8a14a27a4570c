// Package telemetry provides windowed run statistics, milestone bookmarks and CSV output.
package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`
	Ticks           int   `csv:"ticks"`

	// Population at window end
	Empty int `csv:"empty"`
	A     int `csv:"a"`
	B     int `csv:"b"`

	// Step engine activity during window
	Sampled     int     `csv:"sampled"`
	Unsatisfied int     `csv:"unsatisfied_draws"`
	Relocations int     `csv:"relocations"`
	Stranded    int     `csv:"stranded"`
	IdleTicks   int     `csv:"idle_ticks"` // Ticks without a relocation
	Converged   bool    `csv:"converged"`  // Final tick of the window had no relocation
	MoveRate    float64 `csv:"move_rate"`  // Relocations per sampled cell

	// Neighborhood structure at window end
	Segregation       float64 `csv:"segregation"` // NaN when no similarity is defined
	SimilarityP10     float64 `csv:"similarity_p10"`
	SimilarityP50     float64 `csv:"similarity_p50"`
	SimilarityP90     float64 `csv:"similarity_p90"`
	UnsatisfiedAgents int     `csv:"unsatisfied_agents"`
	UnsatisfiedShare  float64 `csv:"unsatisfied_share"`

	// Agent registry
	AgentMovesMean float64 `csv:"agent_moves_mean"`
	AgentMovesP90  float64 `csv:"agent_moves_p90"`
	SettledShare   float64 `csv:"settled_share"` // Agents that never moved
}

// MetricAttr builds a float attribute for a metric that may be undefined.
// NaN is logged as the string "undefined" since JSON has no NaN.
func MetricAttr(key string, v float64) slog.Attr {
	if math.IsNaN(v) {
		return slog.String(key, "undefined")
	}
	return slog.Float64(key, v)
}

// SegregationDefined reports whether the window carries a segregation value.
func (s WindowStats) SegregationDefined() bool {
	return !math.IsNaN(s.Segregation)
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution calculates mean and percentiles of values.
// Returns all zeros for an empty slice.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("empty", s.Empty),
		slog.Int("a", s.A),
		slog.Int("b", s.B),
		slog.Int("sampled", s.Sampled),
		slog.Int("unsatisfied_draws", s.Unsatisfied),
		slog.Int("relocations", s.Relocations),
		slog.Int("stranded", s.Stranded),
		slog.Int("idle_ticks", s.IdleTicks),
		slog.Float64("move_rate", s.MoveRate),
		MetricAttr("segregation", s.Segregation),
		slog.Float64("similarity_p10", s.SimilarityP10),
		slog.Float64("similarity_p50", s.SimilarityP50),
		slog.Float64("similarity_p90", s.SimilarityP90),
		slog.Int("unsatisfied_agents", s.UnsatisfiedAgents),
		slog.Float64("unsatisfied_share", s.UnsatisfiedShare),
		slog.Float64("agent_moves_mean", s.AgentMovesMean),
		slog.Float64("agent_moves_p90", s.AgentMovesP90),
		slog.Float64("settled_share", s.SettledShare),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"relocations", s.Relocations,
		"stranded", s.Stranded,
		MetricAttr("segregation", s.Segregation),
		"unsatisfied_share", s.UnsatisfiedShare,
		"settled_share", s.SettledShare,
	)
}
