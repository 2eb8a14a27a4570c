package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/segregation/config"
	"github.com/pthm-cable/segregation/game"
)

// undefinedPenalty is the fitness of a parameter set whose runs never
// produce a defined segregation level.
const undefinedPenalty = 1.0

// FitnessEvaluator runs simulations and scores how close their final
// segregation lands to the target.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config
	target     float64

	mu          sync.Mutex
	lastSummary EvalSummary
}

// EvalSummary describes the runs behind one evaluation.
type EvalSummary struct {
	Segregation float64 // Mean final segregation over seeds with a defined value
	Ticks       float64 // Mean ticks per run
	Converged   int     // Runs that stopped without hitting the cap
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config, target float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		target:     target,
	}
}

// LastSummary returns the run summary from the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() EvalSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSummary
}

// Evaluate computes fitness for a raw parameter vector (lower = better):
// the squared distance of the mean final segregation from the target.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel; every game owns its random source
	results := make([]game.RunResult, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var segs, ticks []float64
	summary := EvalSummary{Segregation: math.NaN()}
	for i, r := range results {
		if errs[i] != nil {
			continue
		}
		ticks = append(ticks, float64(r.Ticks))
		if r.Converged {
			summary.Converged++
		}
		if !math.IsNaN(r.Segregation) {
			segs = append(segs, r.Segregation)
		}
	}
	if len(ticks) > 0 {
		summary.Ticks = stat.Mean(ticks, nil)
	}

	fitness := undefinedPenalty
	if len(segs) > 0 {
		summary.Segregation = stat.Mean(segs, nil)
		d := summary.Segregation - fe.target
		fitness = d * d
	}

	fe.mu.Lock()
	fe.lastSummary = summary
	fe.mu.Unlock()

	return fitness
}

// runSimulation runs one seed to convergence or the tick cap.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (game.RunResult, error) {
	g, err := game.NewGame(cfg, game.Options{Seed: seed})
	if err != nil {
		return game.RunResult{}, err
	}
	defer g.Close()
	return g.Run(fe.maxTicks), nil
}
