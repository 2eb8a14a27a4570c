// Package game runs the segregation model: it owns the random source, the
// grid, the agent registry and the telemetry pipeline.
package game

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/segregation/components"
	"github.com/pthm-cable/segregation/config"
	"github.com/pthm-cable/segregation/systems"
	"github.com/pthm-cable/segregation/telemetry"
)

// Options configures a Game beyond the simulation config.
type Options struct {
	Seed          int64 // 0 = use config run.seed, then time-based
	LogStats      bool
	OutputDir     string
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete run state.
type Game struct {
	cfg    *config.Config
	params systems.Params
	seed   int64
	rng    *rand.Rand
	grid   *systems.Grid

	// Agent registry
	world       *ecs.World
	agentMapper *ecs.Map3[components.Agent, components.Home, components.Tenure]
	agentFilter *ecs.Filter3[components.Agent, components.Home, components.Tenure]
	occupants   []ecs.Entity // row-major; meaningful only where the grid is occupied
	nextID      uint32

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)
	logStats         bool

	// State
	tick        int32
	relocations int
}

// RunResult summarizes a finished run.
type RunResult struct {
	Ticks       int32
	Converged   bool // Stopped on a tick without relocation
	Segregation float64
	Unsatisfied int
	Relocations int
	Census      systems.Census
}

// LogValue implements slog.LogValuer for structured logging.
func (r RunResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("ticks", int(r.Ticks)),
		slog.Bool("converged", r.Converged),
		telemetry.MetricAttr("segregation", r.Segregation),
		slog.Int("unsatisfied", r.Unsatisfied),
		slog.Int("relocations", r.Relocations),
		slog.Int("a", r.Census.A),
		slog.Int("b", r.Census.B),
		slog.Int("empty", r.Census.Empty),
	)
}

// NewGame validates cfg, builds the grid and registers one agent per occupied cell.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Run.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	params := cfg.Params()
	rng := rand.New(rand.NewSource(seed))
	grid, err := systems.Initialize(params.Size, params.FractionEmpty, params.FractionA, rng)
	if err != nil {
		return nil, fmt.Errorf("initializing grid: %w", err)
	}

	world := ecs.NewWorld()
	g := &Game{
		cfg:    cfg,
		params: params,
		seed:   seed,
		rng:    rng,
		grid:   grid,

		world:       world,
		agentMapper: ecs.NewMap3[components.Agent, components.Home, components.Tenure](world),
		agentFilter: ecs.NewFilter3[components.Agent, components.Home, components.Tenure](world),
		occupants:   make([]ecs.Entity, params.Size*params.Size),

		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Bookmarks),
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
	}

	g.registerAgents()

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	census := grid.Census()
	slog.Info("simulation initialized",
		"seed", seed,
		"size", params.Size,
		"threshold", params.Threshold,
		"agents_per_step", params.AgentsPerStep,
		"a", census.A,
		"b", census.B,
		"empty", census.Empty,
	)

	return g, nil
}

// Step advances the simulation by one tick.
func (g *Game) Step() systems.StepResult {
	g.perfCollector.StartTick()
	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseRelocation)
	res := systems.Step(g.grid, g.rng, g.params.Threshold, g.params.AgentsPerStep, g.onMove)
	g.relocations += res.Relocations
	g.collector.RecordStep(res)

	if g.collector.ShouldFlush(g.tick) {
		g.flushTelemetry()
	}

	g.perfCollector.EndTick()
	return res
}

// Run steps until a tick without relocation or until maxTicks ticks have
// run in this call (0 = no cap). Any partial stats window is flushed.
func (g *Game) Run(maxTicks int) RunResult {
	converged := false
	for ticks := 0; maxTicks <= 0 || ticks < maxTicks; ticks++ {
		if !g.Step().Moved {
			converged = true
			break
		}
	}

	g.flushPending()

	res := g.Result()
	res.Converged = converged
	if converged {
		slog.Info("converged", "tick", g.tick, telemetry.MetricAttr("segregation", res.Segregation))
	} else {
		slog.Info("max ticks reached", "tick", g.tick, telemetry.MetricAttr("segregation", res.Segregation))
	}
	return res
}

// Result reports the current state. Segregation is NaN when undefined.
func (g *Game) Result() RunResult {
	seg, err := g.Segregation()
	if err != nil {
		seg = math.NaN()
	}
	return RunResult{
		Ticks:       g.tick,
		Segregation: seg,
		Unsatisfied: systems.UnsatisfiedCount(g.grid, g.params.Threshold),
		Relocations: g.relocations,
		Census:      g.grid.Census(),
	}
}

// Segregation returns the average neighbor similarity of the grid.
func (g *Game) Segregation() (float64, error) {
	return systems.AverageSimilarity(g.grid)
}

// Grid returns the live grid. Callers must not mutate it between ticks.
func (g *Game) Grid() *systems.Grid {
	return g.grid
}

// Snapshot returns a row-major copy of the cells for renderers.
func (g *Game) Snapshot() []components.Cell {
	return g.grid.Snapshot()
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 {
	return g.tick
}

// Seed returns the seed of the random source.
func (g *Game) Seed() int64 {
	return g.seed
}

// Params returns the model parameters of this run.
func (g *Game) Params() systems.Params {
	return g.params
}

// Close flushes any pending stats window and closes output files.
func (g *Game) Close() error {
	g.flushPending()
	return g.outputManager.Close()
}
