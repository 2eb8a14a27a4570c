package game

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/segregation/systems"
	"github.com/pthm-cable/segregation/telemetry"
)

// flushPending flushes a partial stats window as its own timed sample.
func (g *Game) flushPending() {
	if !g.collector.Pending() {
		return
	}
	g.perfCollector.StartTick()
	g.flushTelemetry()
	g.perfCollector.EndTick()
}

// flushTelemetry samples the grid, closes the stats window and handles bookmarks.
func (g *Game) flushTelemetry() {
	g.perfCollector.StartPhase(telemetry.PhaseMetric)
	sample := g.sampleGrid()

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	stats := g.collector.Flush(g.tick, sample)
	perfStats := g.perfCollector.Stats()

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	// Check for bookmarks
	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
	}
}

// sampleGrid collects the grid and registry state for a stats window.
func (g *Game) sampleGrid() telemetry.GridSample {
	similarities := systems.SimilarityField(g.grid)

	// Same mean as systems.AverageSimilarity, without a second scan
	segregation := math.NaN()
	if len(similarities) > 0 {
		segregation = stat.Mean(similarities, nil)
	}

	return telemetry.GridSample{
		Census:            g.grid.Census(),
		Similarities:      similarities,
		Segregation:       segregation,
		UnsatisfiedAgents: systems.UnsatisfiedCount(g.grid, g.params.Threshold),
		AgentMoves:        g.agentMoves(),
	}
}
