package strategyconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/selection"
	"github.com/wonny/optacq/internal/timeframe"
)

func TestDefault(t *testing.T) {
	cat, data, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "us_equity_options", cat.Meta.CatalogID)
	assert.Empty(t, Warn(cat))

	// 내장 카탈로그 = 코드 기본값
	assert.Equal(t, timeframe.DefaultTable(), cat.TimeframeTable())
	assert.Equal(t, selection.DefaultPolicy(), cat.Policy())
}

func TestHash_Deterministic(t *testing.T) {
	cat, _, err := Default()
	require.NoError(t, err)

	hash, err := Hash(cat)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	hash2, _ := Hash(cat)
	assert.Equal(t, hash, hash2)

	cat.Liquidity.Regular.MinOpenInterest++
	hash3, _ := Hash(cat)
	assert.NotEqual(t, hash, hash3)
}

func TestResolver(t *testing.T) {
	cat, _, err := Default()
	require.NoError(t, err)
	r, err := NewResolver(cat)
	require.NoError(t, err)
	assert.Equal(t, len(cat.Strategies), r.Len())

	spec := r.Resolve("long_straddle", contracts.StrategyVolatility)
	assert.Equal(t, "LongStraddle", spec.Name)
	assert.Equal(t, selection.Straddle{Side: selection.Long}, spec.Rule)

	spec = r.Resolve("BuyWrite", contracts.StrategyIncome)
	assert.Equal(t, selection.SingleLeg{OptionType: contracts.OptionCall, Side: selection.Short, MoneynessPct: 5}, spec.Rule)

	// 카탈로그에 없는 이름 → 유형별 기본 규칙
	spec = r.Resolve("Wheel", contracts.StrategyIncome)
	assert.Equal(t, "Wheel", spec.Name)
	assert.Equal(t, selection.DefaultSpecForType("Wheel", contracts.StrategyIncome).Rule, spec.Rule)
}

func TestParse_Rejects(t *testing.T) {
	base := `
meta: { catalog_id: t }
timeframes:
  high_confidence_threshold: 0.75
  directional: { min_dte: 30, max_dte: 45, label: Medium }
  volatility:  { min_dte: 45, max_dte: 60, label: Long }
  income:      { min_dte: 30, max_dte: 45, label: Short }
  leap:        { min_dte: %d, max_dte: 730, label: LEAP }
  default:     { min_dte: 30, max_dte: 60, label: Wide }
liquidity:
  regular:     { min_open_interest: 25, max_spread_pct: 10 }
  after_hours: { min_open_interest: 10, max_spread_pct: 20 }
  max_strike_distance_pct: 15
strategies:
%s
`
	tests := []struct {
		name       string
		leapMin    int
		strategies string
		field      string
	}{
		{"short leap", 200, "  - { name: A, type: LEAP, rule: { kind: single, option_type: call, side: long } }", "timeframes.leap.min_dte"},
		{"unknown kind", 365, "  - { name: A, type: Income, rule: { kind: butterfly } }", "strategies[0].rule"},
		{"unknown type", 365, "  - { name: A, type: Arbitrage, rule: { kind: straddle, side: long } }", "strategies[0].type"},
		{"duplicate", 365, "  - { name: A, type: Volatility, rule: { kind: straddle, side: long } }\n  - { name: a, type: Volatility, rule: { kind: straddle, side: short } }", "strategies[1].name"},
		{"bad side", 365, "  - { name: A, type: Volatility, rule: { kind: straddle, side: flat } }", "strategies[0].rule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(fmt.Sprintf(base, tt.leapMin, tt.strategies)))
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("meta: { catalog_id: t, owner: me }\n"))
	assert.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalogYAML, 0o644))

	cat, data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultCatalogYAML, data)

	snap, err := NewSnapshot(cat, data)
	require.NoError(t, err)
	assert.Equal(t, "us_equity_options", snap.CatalogID)
	assert.Len(t, snap.CatalogHash, 64)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWarn_LegOutOfReach(t *testing.T) {
	cat, _, err := Default()
	require.NoError(t, err)
	cat.Strategies = append(cat.Strategies, Strategy{
		Name: "DeepPut", Type: "Directional",
		Rule: Rule{Kind: "single", OptionType: "put", Side: "long", MoneynessPct: 30},
	})

	warnings := Warn(cat)
	require.Len(t, warnings, 1)
	assert.Equal(t, "LEG_OUT_OF_REACH", warnings[0].Code)
}
