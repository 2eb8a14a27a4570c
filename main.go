package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/segregation/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "segregation",
		Short: "Schelling segregation model",
		Long: `segregation runs the Schelling model on a toroidal grid.

Agents of two types relocate to random empty cells while the share of
like neighbors around them is below the threshold. Runs report the
average neighbor similarity as the segregation level.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Set up slog (JSON to stdout for structured logging)
			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

			configPath, _ := cmd.Flags().GetString("config")
			if err := config.Init(configPath); err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().Bool("log-stats", false, "Output window stats via slog")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
