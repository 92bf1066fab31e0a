package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/optacq/internal/strategyconfig"
)

// catalogCmd validates a strategy catalog
var catalogCmd = &cobra.Command{
	Use:   "catalog [path]",
	Short: "전략 카탈로그 검증",
	Long: `Validates a strategy catalog YAML and prints its hash. Without a path
$STRATEGY_CATALOG, --catalog or the embedded catalog is checked.

Example:
  go run ./cmd/optacq catalog config/strategies.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.StrategyCatalog
	if len(args) == 1 {
		path = args[0]
	}

	cat, data, err := strategyconfig.Load(path)
	if err != nil {
		return err
	}
	snap, err := strategyconfig.NewSnapshot(cat, data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, "Strategy Catalog")
	PrintKeyValue(out, "Catalog ID", snap.CatalogID, 12)
	PrintKeyValue(out, "Version", snap.Version, 12)
	PrintKeyValue(out, "Hash", snap.CatalogHash, 12)
	PrintKeyValue(out, "Strategies", fmt.Sprintf("%d", len(cat.Strategies)), 12)

	for _, w := range strategyconfig.Warn(cat) {
		PrintWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	PrintSuccess(out, "catalog is valid")
	return nil
}
