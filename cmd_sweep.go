package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/segregation/config"
	"github.com/pthm-cable/segregation/game"
	"github.com/pthm-cable/segregation/telemetry"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Measure final segregation across a range of thresholds",
		Long: `sweep runs the model once per (threshold, seed) pair and reports the
final segregation of each run and the mean per threshold.

The threshold range and seed count default to the config's sweep section.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Cfg().Clone()

			if cmd.Flags().Changed("min") {
				cfg.Sweep.ThresholdMin, _ = cmd.Flags().GetFloat64("min")
			}
			if cmd.Flags().Changed("max") {
				cfg.Sweep.ThresholdMax, _ = cmd.Flags().GetFloat64("max")
			}
			if cmd.Flags().Changed("steps") {
				cfg.Sweep.Steps, _ = cmd.Flags().GetInt("steps")
			}
			if cmd.Flags().Changed("seeds") {
				cfg.Sweep.Seeds, _ = cmd.Flags().GetInt("seeds")
			}
			if cmd.Flags().Changed("max-ticks") {
				cfg.Run.MaxTicks, _ = cmd.Flags().GetInt("max-ticks")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validating sweep: %w", err)
			}

			baseSeed, _ := cmd.Flags().GetInt64("seed")
			if baseSeed == 0 {
				baseSeed = cfg.Run.Seed
			}
			if baseSeed == 0 {
				baseSeed = time.Now().UnixNano()
			}

			outputDir, _ := cmd.Flags().GetString("output-dir")
			om, err := telemetry.NewOutputManager(outputDir)
			if err != nil {
				return err
			}
			defer om.Close()
			if err := om.WriteConfig(cfg); err != nil {
				return err
			}

			opts := game.SweepOptionsFromConfig(cfg, baseSeed)
			slog.Info("starting sweep",
				"thresholds", len(opts.Thresholds),
				"seeds", len(opts.Seeds),
				"base_seed", baseSeed,
				"max_ticks", opts.MaxTicks,
			)

			runs, err := game.Sweep(cfg, opts, func(run telemetry.SweepRun) {
				slog.Info("sweep run",
					"threshold", run.Threshold,
					"seed", run.Seed,
					"ticks", run.Ticks,
					telemetry.MetricAttr("segregation", run.Segregation),
				)
			})
			if err != nil {
				return err
			}

			summaries := telemetry.Summarize(runs)
			for _, s := range summaries {
				slog.Info("sweep summary", "summary", s)
			}

			return om.WriteSweep(runs, summaries)
		},
	}

	cmd.Flags().Float64("min", 0, "Lowest threshold (default from config)")
	cmd.Flags().Float64("max", 0, "Highest threshold (default from config)")
	cmd.Flags().Int("steps", 0, "Number of thresholds (default from config)")
	cmd.Flags().Int("seeds", 0, "Runs per threshold (default from config)")
	cmd.Flags().Int64("seed", 0, "Base seed (0 = config run.seed, then time-based)")
	cmd.Flags().Int("max-ticks", 0, "Tick cap per run (default from config)")
	cmd.Flags().String("output-dir", "", "Output directory for sweep CSVs and config snapshot")

	return cmd
}
