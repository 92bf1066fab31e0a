package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/logger"
)

var (
	// Global flags
	catalogPath string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "optacq",
	Short: "Strategy-aware option contract acquisition",
	Long: `optacq turns (ticker, strategy) requests into concrete option contracts.

Each request gets a DTE window from its strategy type, an expiration and
strikes from the provider's chain, and an explicit status. One input row
always yields one output row.

Usage:
  go run ./cmd/optacq [command]

Examples:
  go run ./cmd/optacq acquire --input requests.json --output results.json
  go run ./cmd/optacq timeframe --type LEAP --confidence 0.9
  go run ./cmd/optacq cache stats
  go run ./cmd/optacq serve
  go run ./cmd/optacq scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "strategy catalog YAML (default: $STRATEGY_CATALOG or embedded)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig loads the environment and applies global flag overrides
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if catalogPath != "" {
		cfg.StrategyCatalog = catalogPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}
