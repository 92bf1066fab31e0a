package strategyconfig

import (
	"fmt"
	"strings"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/selection"
	"github.com/wonny/optacq/internal/timeframe"
)

// ToRule converts the YAML rule into its selector variant
func ToRule(r Rule) (selection.LegRule, error) {
	side := selection.Side(strings.ToLower(r.Side))
	optType, _ := contracts.ParseOptionType(r.OptionType)

	var rule selection.LegRule
	switch r.Kind {
	case "single":
		rule = selection.SingleLeg{OptionType: optType, Side: side, MoneynessPct: r.MoneynessPct}
	case "straddle":
		rule = selection.Straddle{Side: side}
	case "strangle":
		rule = selection.Strangle{Side: side, OffsetPct: r.OffsetPct}
	case "vertical":
		rule = selection.VerticalSpread{OptionType: optType, Side: side, AnchorPct: r.AnchorPct, WidthPct: r.WidthPct}
	case "iron_condor":
		rule = selection.IronCondor{ShortOffsetPct: r.ShortOffsetPct, WingWidthPct: r.WingWidthPct}
	default:
		return nil, fmt.Errorf("unknown rule kind %q", r.Kind)
	}

	if err := selection.ValidateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// TimeframeTable returns the catalog's base windows for the assigner
func (c *Catalog) TimeframeTable() timeframe.Table {
	conv := func(w Window) timeframe.BaseWindow {
		return timeframe.BaseWindow{MinDTE: w.MinDTE, MaxDTE: w.MaxDTE, Label: w.Label}
	}
	tf := c.Timeframes
	return timeframe.Table{
		ByType: map[contracts.StrategyType]timeframe.BaseWindow{
			contracts.StrategyDirectional: conv(tf.Directional),
			contracts.StrategyVolatility:  conv(tf.Volatility),
			contracts.StrategyIncome:      conv(tf.Income),
			contracts.StrategyLEAP:        conv(tf.LEAP),
		},
		Default:        conv(tf.Default),
		HighConfidence: tf.HighConfidenceThreshold,
	}
}

// Policy returns the catalog's liquidity policy for the selector
func (c *Catalog) Policy() selection.Policy {
	l := c.Liquidity
	return selection.Policy{
		Regular:              selection.Thresholds{MinOpenInterest: l.Regular.MinOpenInterest, MaxSpreadPct: l.Regular.MaxSpreadPct},
		AfterHours:           selection.Thresholds{MinOpenInterest: l.AfterHours.MinOpenInterest, MaxSpreadPct: l.AfterHours.MaxSpreadPct},
		MaxStrikeDistancePct: l.MaxStrikeDistancePct,
	}
}

// Resolver maps request strategy names to specs
type Resolver struct {
	byName map[string]selection.StrategySpec
}

// NewResolver indexes a validated catalog
func NewResolver(c *Catalog) (*Resolver, error) {
	r := &Resolver{byName: make(map[string]selection.StrategySpec, len(c.Strategies))}
	for _, s := range c.Strategies {
		rule, err := ToRule(s.Rule)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", s.Name, err)
		}
		r.byName[normalizeName(s.Name)] = selection.StrategySpec{
			Name: s.Name,
			Type: contracts.ParseStrategyType(s.Type),
			Rule: rule,
		}
	}
	return r, nil
}

// Resolve returns the catalog spec for name, matched ignoring case, spaces,
// dashes and underscores. Unknown names fall back to a rule chosen by t.
func (r *Resolver) Resolve(name string, t contracts.StrategyType) selection.StrategySpec {
	if spec, ok := r.byName[normalizeName(name)]; ok {
		return spec
	}
	return selection.DefaultSpecForType(name, t)
}

// Len returns the number of catalog strategies
func (r *Resolver) Len() int {
	return len(r.byName)
}

func normalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
