package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/strategyconfig"
	"github.com/wonny/optacq/internal/timeframe"
)

// timeframeCmd previews window assignment
var timeframeCmd = &cobra.Command{
	Use:   "timeframe",
	Short: "전략 유형별 만기 구간 조회",
	Long: `Prints the DTE windows of the strategy catalog. With --type the
window assigned to one (type, confidence) pair is shown instead.

Example:
  go run ./cmd/optacq timeframe
  go run ./cmd/optacq timeframe --type Income --confidence 0.9`,
	RunE: runTimeframe,
}

var (
	timeframeType       string
	timeframeConfidence float64
)

func init() {
	rootCmd.AddCommand(timeframeCmd)

	timeframeCmd.Flags().StringVar(&timeframeType, "type", "", "strategy type (Directional|Volatility|Income|LEAP)")
	timeframeCmd.Flags().Float64Var(&timeframeConfidence, "confidence", 0.5, "confidence score 0-1")
}

func runTimeframe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cat, _, err := strategyconfig.Load(cfg.StrategyCatalog)
	if err != nil {
		return err
	}
	assigner := timeframe.NewAssigner(cat.TimeframeTable())
	out := cmd.OutOrStdout()

	if timeframeType != "" {
		if timeframeConfidence < 0 || timeframeConfidence > 1 {
			return fmt.Errorf("confidence must be within [0,1]")
		}
		t := contracts.ParseStrategyType(timeframeType)
		w := assigner.Assign(contracts.StrategyTimeframeRequest{Ticker: "PREVIEW", StrategyType: t, ConfidenceScore: timeframeConfidence})

		PrintHeader(out, fmt.Sprintf("Timeframe: %s @ %.2f", t, timeframeConfidence))
		PrintKeyValue(out, "Label", w.Label, 10)
		PrintKeyValue(out, "Min DTE", fmt.Sprintf("%d", w.MinDTE), 10)
		PrintKeyValue(out, "Target DTE", fmt.Sprintf("%d", w.TargetDTE), 10)
		PrintKeyValue(out, "Max DTE", fmt.Sprintf("%d", w.MaxDTE), 10)
		return nil
	}

	table := assigner.Table()
	PrintHeader(out, fmt.Sprintf("Timeframes (narrow above confidence %.2f)", table.HighConfidence))
	widths := []int{12, 8, 8, 8}
	PrintTableHeader(out, []string{"TYPE", "LABEL", "MIN", "MAX"}, widths)

	types := make([]string, 0, len(table.ByType))
	for t := range table.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		b := table.ByType[contracts.StrategyType(t)]
		PrintTableRow(out, []string{t, b.Label, fmt.Sprintf("%d", b.MinDTE), fmt.Sprintf("%d", b.MaxDTE)}, widths)
	}
	PrintTableRow(out, []string{string(contracts.StrategyUnknown), table.Default.Label, fmt.Sprintf("%d", table.Default.MinDTE), fmt.Sprintf("%d", table.Default.MaxDTE)}, widths)
	return nil
}
