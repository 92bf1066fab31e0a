// Package timeframe maps strategy requests onto DTE windows.
package timeframe

import (
	"github.com/wonny/optacq/internal/contracts"
)

// DefaultHighConfidence is the confidence above which windows narrow to their lower half
const DefaultHighConfidence = 0.75

// BaseWindow is the un-narrowed DTE range of one strategy type
type BaseWindow struct {
	MinDTE int    `yaml:"min_dte" json:"min_dte"`
	MaxDTE int    `yaml:"max_dte" json:"max_dte"`
	Label  string `yaml:"label" json:"label"`
}

// Table holds the base windows per type plus the fallback for unknown types
type Table struct {
	ByType         map[contracts.StrategyType]BaseWindow
	Default        BaseWindow
	HighConfidence float64
}

// ⭐ SSOT: 전략 유형별 기본 만기 구간
// DefaultTable returns the built-in windows
func DefaultTable() Table {
	return Table{
		ByType: map[contracts.StrategyType]BaseWindow{
			contracts.StrategyDirectional: {MinDTE: 30, MaxDTE: 45, Label: "Medium"},
			contracts.StrategyVolatility:  {MinDTE: 45, MaxDTE: 60, Label: "Long"},
			contracts.StrategyIncome:      {MinDTE: 30, MaxDTE: 45, Label: "Short"},
			contracts.StrategyLEAP:        {MinDTE: 365, MaxDTE: 730, Label: "LEAP"},
		},
		Default:        BaseWindow{MinDTE: 30, MaxDTE: 60, Label: "Wide"},
		HighConfidence: DefaultHighConfidence,
	}
}

// Assigner is a pure request → window mapping
type Assigner struct {
	table Table
}

// NewAssigner creates an assigner over table. Absent or invalid entries are
// replaced per type from the built-in table so Assign always returns a valid
// window. The caller's map is not modified.
func NewAssigner(table Table) *Assigner {
	builtin := DefaultTable()

	byType := builtin.ByType
	for t, b := range table.ByType {
		if valid(b) {
			byType[t] = b
		}
	}
	table.ByType = byType

	if !valid(table.Default) {
		table.Default = builtin.Default
	}
	if table.HighConfidence <= 0 || table.HighConfidence >= 1 {
		table.HighConfidence = builtin.HighConfidence
	}
	return &Assigner{table: table}
}

func valid(b BaseWindow) bool {
	return b.MinDTE >= 0 && b.MaxDTE > 0 && b.MinDTE <= b.MaxDTE && b.Label != ""
}

// Base returns the base window for t
func (a *Assigner) Base(t contracts.StrategyType) BaseWindow {
	if b, ok := a.table.ByType[t]; ok && valid(b) {
		return b
	}
	return a.table.Default
}

// Assign returns the DTE window for req. High-confidence requests narrow
// toward the minimum bound; the label always names the base bucket.
func (a *Assigner) Assign(req contracts.StrategyTimeframeRequest) contracts.TimeframeWindow {
	base := a.Base(req.StrategyType)

	lo, hi := base.MinDTE, base.MaxDTE
	if req.ConfidenceScore > a.table.HighConfidence {
		hi = lo + (hi-lo)/2
	}

	return contracts.TimeframeWindow{
		MinDTE:    lo,
		MaxDTE:    hi,
		TargetDTE: (lo + hi) / 2,
		Label:     base.Label,
	}
}

// AssignAll maps requests one-to-one, preserving order
func (a *Assigner) AssignAll(reqs []contracts.StrategyTimeframeRequest) []contracts.TimeframeWindow {
	out := make([]contracts.TimeframeWindow, len(reqs))
	for i, r := range reqs {
		out[i] = a.Assign(r)
	}
	return out
}

// Table returns the effective table, gaps already filled
func (a *Assigner) Table() Table {
	return a.table
}
