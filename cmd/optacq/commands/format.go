package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonny/optacq/internal/engine"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const rule = "───────────────────────────────────────────────────────────"

// PrintHeader prints a boxed command header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", 59))
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, rule)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", total))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintRunSummary prints the status distribution of a run
func PrintRunSummary(w io.Writer, run *engine.Run) {
	r := run.Report
	PrintHeader(w, "Acquisition Run")
	PrintKeyValue(w, "Run ID", run.ID.String(), 14)
	PrintKeyValue(w, "As of", run.AsOf.Format("2006-01-02 15:04:05 MST"), 14)
	PrintKeyValue(w, "Catalog", fmt.Sprintf("%s (%.12s)", run.CatalogID, run.CatalogHash), 14)
	PrintKeyValue(w, "Requests", fmt.Sprintf("%d", r.Total), 14)
	PrintKeyValue(w, "Usable", fmt.Sprintf("%d", r.Usable), 14)
	PrintKeyValue(w, "Cache hits", fmt.Sprintf("%d", r.CacheHits), 14)
	PrintKeyValue(w, "Multi-success", fmt.Sprintf("%d/%d tickers (%.0f%%)", r.MultiSuccess, r.MultiStrategy, r.MultiSuccessRatio*100), 14)
	PrintKeyValue(w, "Duration", fmt.Sprintf("%.2fs", run.DurationSec), 14)
	fmt.Fprintln(w, rule)

	widths := []int{28, 8}
	PrintTableHeader(w, []string{"STATUS", "COUNT"}, widths)
	for _, s := range r.SortedStatuses() {
		PrintTableRow(w, []string{string(s), fmt.Sprintf("%d", r.StatusCounts[s])}, widths)
	}
	fmt.Fprintln(w)
}
