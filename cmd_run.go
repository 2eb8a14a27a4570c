package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/segregation/config"
	"github.com/pthm-cable/segregation/game"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation until no agent moves",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Cfg().Clone()

			if cmd.Flags().Changed("threshold") {
				cfg.Agents.Threshold, _ = cmd.Flags().GetFloat64("threshold")
			}
			if cmd.Flags().Changed("size") {
				cfg.Grid.Size, _ = cmd.Flags().GetInt("size")
			}
			if cmd.Flags().Changed("max-ticks") {
				cfg.Run.MaxTicks, _ = cmd.Flags().GetInt("max-ticks")
			}

			seed, _ := cmd.Flags().GetInt64("seed")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			logStats, _ := cmd.Flags().GetBool("log-stats")

			g, err := game.NewGame(cfg, game.Options{
				Seed:      seed,
				LogStats:  logStats,
				OutputDir: outputDir,
			})
			if err != nil {
				return err
			}
			defer g.Close()

			slog.Info("starting simulation",
				"seed", g.Seed(),
				"max_ticks", cfg.Run.MaxTicks,
				"output_dir", outputDir,
			)

			res := g.Run(cfg.Run.MaxTicks)
			slog.Info("simulation finished", "result", res, "agents", g.AgentStats().Agents)
			return nil
		},
	}

	cmd.Flags().Int64("seed", 0, "RNG seed (0 = config run.seed, then time-based)")
	cmd.Flags().Int("max-ticks", 0, "Stop after N ticks (0 = unlimited; default from config)")
	cmd.Flags().Float64("threshold", 0, "Satisfaction threshold (default from config)")
	cmd.Flags().Int("size", 0, "Grid side length (default from config)")
	cmd.Flags().String("output-dir", "", "Output directory for CSV logs and config snapshot")

	return cmd
}
