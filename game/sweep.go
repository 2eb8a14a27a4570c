package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/segregation/config"
	"github.com/pthm-cable/segregation/telemetry"
)

// SweepOptions configures a threshold sweep.
type SweepOptions struct {
	Thresholds []float64
	Seeds      []int64
	MaxTicks   int // Per run; 0 = no cap
}

// Thresholds returns steps evenly spaced thresholds from lo to hi inclusive.
func Thresholds(lo, hi float64, steps int) []float64 {
	switch {
	case steps <= 0:
		return nil
	case steps == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, steps), lo, hi)
}

// SweepSeeds returns n deterministic seeds starting from base.
func SweepSeeds(base int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)*1000 + 42
	}
	return seeds
}

// SweepOptionsFromConfig builds the sweep described by the config's sweep section.
func SweepOptionsFromConfig(cfg *config.Config, baseSeed int64) SweepOptions {
	return SweepOptions{
		Thresholds: Thresholds(cfg.Sweep.ThresholdMin, cfg.Sweep.ThresholdMax, cfg.Sweep.Steps),
		Seeds:      SweepSeeds(baseSeed, cfg.Sweep.Seeds),
		MaxTicks:   cfg.Run.MaxTicks,
	}
}

// Sweep runs one game per (threshold, seed) pair, sequentially, and reports
// the final segregation of each. onRun, if set, sees every run as it ends.
func Sweep(cfg *config.Config, opts SweepOptions, onRun func(telemetry.SweepRun)) ([]telemetry.SweepRun, error) {
	if len(opts.Thresholds) == 0 || len(opts.Seeds) == 0 {
		return nil, errors.New("sweep needs at least one threshold and one seed")
	}

	runs := make([]telemetry.SweepRun, 0, len(opts.Thresholds)*len(opts.Seeds))
	for _, threshold := range opts.Thresholds {
		runCfg := cfg.Clone()
		runCfg.Agents.Threshold = threshold

		for _, seed := range opts.Seeds {
			g, err := NewGame(runCfg, Options{Seed: seed})
			if err != nil {
				return runs, fmt.Errorf("threshold %v seed %d: %w", threshold, seed, err)
			}

			initial, err := g.Segregation()
			if err != nil {
				initial = math.NaN()
			}

			res := g.Run(opts.MaxTicks)
			if err := g.Close(); err != nil {
				return runs, fmt.Errorf("threshold %v seed %d: %w", threshold, seed, err)
			}

			run := telemetry.SweepRun{
				Threshold:        threshold,
				Seed:             seed,
				Ticks:            int(res.Ticks),
				Converged:        res.Converged,
				Segregation:      res.Segregation,
				InitialSeg:       initial,
				UnsatisfiedShare: share(res.Unsatisfied, res.Census.Occupied()),
				Relocations:      res.Relocations,
			}
			slog.Debug("sweep run", "threshold", threshold, "seed", seed, "result", res)

			runs = append(runs, run)
			if onRun != nil {
				onRun(run)
			}
		}
	}
	return runs, nil
}

func share(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of)
}
