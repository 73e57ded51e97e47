package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daniacca/chemsim/internal/config"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chemsim",
		Short: "Stochastic spatial chemical kinetics simulator",
		Long: `chemsim simulates a reacting solution on a cubic grid of cells.

Each step every cell resolves its reactions and then diffuses part of its
contents to a neighbouring cell. Species counts are sampled into a SQLite
results database and can be streamed live over websockets or webhooks.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "", "Results database path (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newValidateCmd(),
		newResultsCmd(),
	)
	return rootCmd
}

// loadConfig loads the config file named by --config, applies environment
// overrides and then the global flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("db") {
		cfg.Output.Database, _ = cmd.Flags().GetString("db")
	}
	return cfg, nil
}
