// Package main provides CMA-ES calibration of the segregation model: it
// searches threshold and vacancy rate for a target final segregation level.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/segregation/config"
	"github.com/pthm-cable/segregation/game"
	"github.com/pthm-cable/segregation/telemetry"
)

const (
	logFile        = "calibrate_log.csv"
	bestConfigFile = "best_config.yaml"
)

// evalRecord is one row of the calibration log.
type evalRecord struct {
	Eval          int     `csv:"eval"`
	Fitness       float64 `csv:"fitness"`
	Threshold     float64 `csv:"threshold"`
	FractionEmpty float64 `csv:"fraction_empty"`
	Segregation   float64 `csv:"segregation"`
	MeanTicks     float64 `csv:"mean_ticks"`
	Converged     int     `csv:"converged"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	cmd := &cobra.Command{
		Use:          "calibrate",
		Short:        "Search threshold and vacancy rate for a target segregation level",
		SilenceUsage: true,
		RunE:         runCalibrate,
	}

	cmd.Flags().String("config", "", "Base config YAML file (empty = use defaults)")
	cmd.Flags().Float64("target", 0.75, "Target final segregation in [0,1]")
	cmd.Flags().Int("max-ticks", 2000, "Tick cap per run")
	cmd.Flags().Int("seeds", 3, "Number of seeds per evaluation")
	cmd.Flags().Int("max-evals", 60, "Maximum number of evaluations")
	cmd.Flags().Int("population", 0, "CMA-ES population size (0 = auto)")
	cmd.Flags().String("output", "", "Output directory for results")
	cmd.Flags().BoolP("verbose", "v", false, "Log every simulation")
	_ = cmd.MarkFlagRequired("output")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	target, _ := cmd.Flags().GetFloat64("target")
	maxTicks, _ := cmd.Flags().GetInt("max-ticks")
	seeds, _ := cmd.Flags().GetInt("seeds")
	maxEvals, _ := cmd.Flags().GetInt("max-evals")
	population, _ := cmd.Flags().GetInt("population")
	outputDir, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if target < 0 || target > 1 || math.IsNaN(target) {
		return fmt.Errorf("--target %v must be within [0,1]", target)
	}
	if seeds < 1 {
		return fmt.Errorf("--seeds %d must be positive", seeds)
	}

	// Every evaluation builds several games; keep their init logs out of the way
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	baseCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer om.Close()

	params := NewParamVector(baseCfg)
	evaluator := NewFitnessEvaluator(params, maxTicks, game.SweepSeeds(0, seeds), baseCfg, target)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds run in parallel inside
	}

	popSize := population
	if popSize == 0 {
		// Auto-size: 4 + floor(3*ln(n))
		popSize = 4 + int(3.0*math.Log(float64(dim)))
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	evalCount := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	var logErr error
	startTime := time.Now()

	// Wrap the function to log evaluations
	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := originalFunc(x)
		evalCount++

		// Clamped values are the ones the simulation actually used
		clamped := params.Clamp(params.Denormalize(x))
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = clamped
		}

		summary := evaluator.LastSummary()
		rec := evalRecord{
			Eval:          evalCount,
			Fitness:       fitness,
			Threshold:     clamped[0],
			FractionEmpty: clamped[1],
			Segregation:   summary.Segregation,
			MeanTicks:     summary.Ticks,
			Converged:     summary.Converged,
		}
		if err := om.WriteRecords(logFile, []evalRecord{rec}); err != nil && logErr == nil {
			logErr = err
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: threshold=%.3f empty=%.3f segregation=%.4f (best=%.6f) | elapsed: %s, ETA: %s\n",
			evalCount, maxEvals, clamped[0], clamped[1], summary.Segregation, bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Starting CMA-ES calibration toward segregation %.3f, population=%d, max_evals=%d\n",
		target, popSize, maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d\n", seeds, maxTicks)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if logErr != nil {
		return fmt.Errorf("writing %s: %w", logFile, logErr)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil {
		if result == nil {
			return errors.New("no evaluation completed")
		}
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.6f\n", bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(om.Dir(), bestConfigFile)
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	return nil
}
