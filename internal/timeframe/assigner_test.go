package timeframe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/optacq/internal/contracts"
)

func TestAssign(t *testing.T) {
	a := NewAssigner(DefaultTable())

	tests := []struct {
		name string
		req  contracts.StrategyTimeframeRequest
		want contracts.TimeframeWindow
	}{
		{"directional", contracts.StrategyTimeframeRequest{Ticker: "AAPL", StrategyType: contracts.StrategyDirectional, ConfidenceScore: 0.6}, contracts.TimeframeWindow{MinDTE: 30, MaxDTE: 45, TargetDTE: 37, Label: "Medium"}},
		{"volatility", contracts.StrategyTimeframeRequest{Ticker: "AAPL", StrategyType: contracts.StrategyVolatility, ConfidenceScore: 0.5}, contracts.TimeframeWindow{MinDTE: 45, MaxDTE: 60, TargetDTE: 52, Label: "Long"}},
		{"income", contracts.StrategyTimeframeRequest{Ticker: "AAPL", StrategyType: contracts.StrategyIncome, ConfidenceScore: 0.75}, contracts.TimeframeWindow{MinDTE: 30, MaxDTE: 45, TargetDTE: 37, Label: "Short"}},
		{"leap", contracts.StrategyTimeframeRequest{Ticker: "AAPL", StrategyType: contracts.StrategyLEAP}, contracts.TimeframeWindow{MinDTE: 365, MaxDTE: 730, TargetDTE: 547, Label: "LEAP"}},
		{"unknown falls back wide", contracts.StrategyTimeframeRequest{Ticker: "AAPL", StrategyType: contracts.StrategyUnknown}, contracts.TimeframeWindow{MinDTE: 30, MaxDTE: 60, TargetDTE: 45, Label: "Wide"}},
		{"high confidence narrows", contracts.StrategyTimeframeRequest{Ticker: "AAPL", StrategyType: contracts.StrategyDirectional, ConfidenceScore: 0.9}, contracts.TimeframeWindow{MinDTE: 30, MaxDTE: 37, TargetDTE: 33, Label: "Medium"}},
		{"high confidence leap", contracts.StrategyTimeframeRequest{Ticker: "AAPL", StrategyType: contracts.StrategyLEAP, ConfidenceScore: 0.95}, contracts.TimeframeWindow{MinDTE: 365, MaxDTE: 547, TargetDTE: 456, Label: "LEAP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Assign(tt.req))
		})
	}
}

func TestAssign_WindowInvariant(t *testing.T) {
	a := NewAssigner(DefaultTable())
	types := []contracts.StrategyType{
		contracts.StrategyDirectional, contracts.StrategyVolatility,
		contracts.StrategyIncome, contracts.StrategyLEAP, contracts.StrategyUnknown,
	}

	for _, st := range types {
		for c := 0.0; c <= 1.0; c += 0.05 {
			w := a.Assign(contracts.StrategyTimeframeRequest{Ticker: "X", StrategyType: st, ConfidenceScore: c})
			assert.True(t, w.Valid(), "%s conf=%.2f: %+v", st, c, w)
			assert.LessOrEqual(t, w.MinDTE, w.TargetDTE)
			assert.LessOrEqual(t, w.TargetDTE, w.MaxDTE)
			if st == contracts.StrategyLEAP {
				assert.GreaterOrEqual(t, w.MinDTE, 365)
			}
		}
	}
}

func TestAssignAll_SameTickerDistinctWindows(t *testing.T) {
	a := NewAssigner(DefaultTable())
	reqs := []contracts.StrategyTimeframeRequest{
		{Ticker: "AAPL", StrategyName: "LongCall", StrategyType: contracts.StrategyDirectional, ConfidenceScore: 0.6},
		{Ticker: "AAPL", StrategyName: "LongStraddle", StrategyType: contracts.StrategyVolatility, ConfidenceScore: 0.6},
		{Ticker: "AAPL", StrategyName: "BuyWrite", StrategyType: contracts.StrategyIncome, ConfidenceScore: 0.6},
	}

	windows := a.AssignAll(reqs)
	assert.Len(t, windows, 3)

	labels := map[string]bool{}
	for _, w := range windows {
		labels[w.Label] = true
	}
	assert.Len(t, labels, 3)
}

func TestNewAssigner_FillsGaps(t *testing.T) {
	partial := map[contracts.StrategyType]BaseWindow{
		contracts.StrategyDirectional: {MinDTE: 20, MaxDTE: 40, Label: "Custom"},
		contracts.StrategyVolatility:  {MinDTE: 50, MaxDTE: 40, Label: "Broken"},
		contracts.StrategyIncome:      {MinDTE: 30, MaxDTE: 45},
	}
	a := NewAssigner(Table{ByType: partial})

	tests := []struct {
		name  string
		typ   contracts.StrategyType
		min   int
		max   int
		label string
	}{
		{"provided entry kept", contracts.StrategyDirectional, 20, 40, "Custom"},
		{"inverted entry replaced", contracts.StrategyVolatility, 45, 60, "Long"},
		{"unlabeled entry replaced", contracts.StrategyIncome, 30, 45, "Short"},
		{"absent entry filled", contracts.StrategyLEAP, 365, 730, "LEAP"},
		{"zero default replaced", contracts.StrategyUnknown, 30, 60, "Wide"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.Assign(contracts.StrategyTimeframeRequest{Ticker: "X", StrategyType: tt.typ, ConfidenceScore: 0.5})
			assert.Equal(t, tt.min, w.MinDTE)
			assert.Equal(t, tt.max, w.MaxDTE)
			assert.Equal(t, tt.label, w.Label)
			assert.True(t, w.Valid())
		})
	}

	assert.Len(t, partial, 3)
	assert.Equal(t, "Broken", partial[contracts.StrategyVolatility].Label)
}
