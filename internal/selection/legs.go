package selection

import (
	"fmt"

	"github.com/wonny/optacq/internal/contracts"
)

// Side is the direction of the anchor leg(s) of a rule
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// LegRule is the closed set of structural leg rules the selector understands.
// Adding a strategy shape means adding a variant here, nothing else.
type LegRule interface {
	Kind() string
	resolve(b *book, spot float64) ([]pick, bool)
}

// SingleLeg is one option at a moneyness offset.
// MoneynessPct > 0 is out-of-the-money, < 0 in-the-money, 0 at-the-money.
type SingleLeg struct {
	OptionType   contracts.OptionType
	Side         Side
	MoneynessPct float64
}

// Straddle is a call and a put at the same strike nearest the underlying
type Straddle struct {
	Side Side
}

// Strangle is an OTM call and an OTM put at ±OffsetPct
type Strangle struct {
	Side      Side
	OffsetPct float64
}

// VerticalSpread is two legs of one type. Side Long is a debit spread
// (long leg at the anchor, short leg further OTM); Side Short is a credit
// spread (short leg at the anchor, long leg further OTM).
type VerticalSpread struct {
	OptionType contracts.OptionType
	Side       Side
	AnchorPct  float64 // moneyness of the anchor leg
	WidthPct   float64 // strike distance between legs, % of underlying
}

// IronCondor is short put/call at ±ShortOffsetPct with long wings WingWidthPct further out
type IronCondor struct {
	ShortOffsetPct float64
	WingWidthPct   float64
}

func (SingleLeg) Kind() string      { return "single" }
func (Straddle) Kind() string       { return "straddle" }
func (Strangle) Kind() string       { return "strangle" }
func (VerticalSpread) Kind() string { return "vertical" }
func (IronCondor) Kind() string     { return "iron_condor" }

// StrategySpec binds a strategy name to its leg rule
type StrategySpec struct {
	Name string
	Type contracts.StrategyType
	Rule LegRule
}

// DefaultSpecForType is used when a strategy name is not in the catalog
func DefaultSpecForType(name string, t contracts.StrategyType) StrategySpec {
	spec := StrategySpec{Name: name, Type: t}
	switch t {
	case contracts.StrategyVolatility:
		spec.Rule = Straddle{Side: Long}
	case contracts.StrategyIncome:
		spec.Rule = SingleLeg{OptionType: contracts.OptionPut, Side: Short, MoneynessPct: 5}
	default:
		// Directional, LEAP, unknown
		spec.Rule = SingleLeg{OptionType: contracts.OptionCall, Side: Long}
	}
	return spec
}

// ValidateRule checks numeric parameters of a rule
func ValidateRule(r LegRule) error {
	switch v := r.(type) {
	case SingleLeg:
		if err := validateSide(v.Side); err != nil {
			return err
		}
		return validateType(v.OptionType)
	case Straddle:
		return validateSide(v.Side)
	case Strangle:
		if v.OffsetPct <= 0 {
			return fmt.Errorf("strangle offset_pct must be > 0")
		}
		return validateSide(v.Side)
	case VerticalSpread:
		if v.WidthPct <= 0 {
			return fmt.Errorf("vertical width_pct must be > 0")
		}
		if err := validateSide(v.Side); err != nil {
			return err
		}
		return validateType(v.OptionType)
	case IronCondor:
		if v.ShortOffsetPct <= 0 || v.WingWidthPct <= 0 {
			return fmt.Errorf("iron_condor offsets must be > 0")
		}
		return nil
	case nil:
		return fmt.Errorf("rule is required")
	default:
		return fmt.Errorf("unsupported rule %T", r)
	}
}

func validateSide(s Side) error {
	if s != Long && s != Short {
		return fmt.Errorf("side must be long or short, got %q", s)
	}
	return nil
}

func validateType(t contracts.OptionType) error {
	if t != contracts.OptionCall && t != contracts.OptionPut {
		return fmt.Errorf("option_type must be call or put, got %q", t)
	}
	return nil
}

// ─── resolution ───

// pick is one resolved leg before pricing
type pick struct {
	role  contracts.LegRole
	quote contracts.OptionQuote
}

func role(t contracts.OptionType, s Side) contracts.LegRole {
	switch {
	case t == contracts.OptionCall && s == Long:
		return contracts.LegLongCall
	case t == contracts.OptionCall:
		return contracts.LegShortCall
	case s == Long:
		return contracts.LegLongPut
	default:
		return contracts.LegShortPut
	}
}

func opposite(s Side) Side {
	if s == Long {
		return Short
	}
	return Long
}

// otmStrike moves pct percent of spot away from spot in the OTM direction of t
func otmStrike(t contracts.OptionType, spot, pct float64) float64 {
	if t == contracts.OptionCall {
		return spot * (1 + pct/100)
	}
	return spot * (1 - pct/100)
}

func (r SingleLeg) resolve(b *book, spot float64) ([]pick, bool) {
	q, ok := b.nearest(r.OptionType, otmStrike(r.OptionType, spot, r.MoneynessPct), nil)
	if !ok {
		return nil, false
	}
	return []pick{{role: role(r.OptionType, r.Side), quote: q}}, true
}

func (r Straddle) resolve(b *book, spot float64) ([]pick, bool) {
	strike, ok := b.nearestCommonStrike(spot)
	if !ok {
		return nil, false
	}
	call, _ := b.at(contracts.OptionCall, strike)
	put, _ := b.at(contracts.OptionPut, strike)
	return []pick{
		{role: role(contracts.OptionCall, r.Side), quote: call},
		{role: role(contracts.OptionPut, r.Side), quote: put},
	}, true
}

func (r Strangle) resolve(b *book, spot float64) ([]pick, bool) {
	call, ok := b.nearest(contracts.OptionCall, otmStrike(contracts.OptionCall, spot, r.OffsetPct), func(k float64) bool { return k > spot })
	if !ok {
		return nil, false
	}
	put, ok := b.nearest(contracts.OptionPut, otmStrike(contracts.OptionPut, spot, r.OffsetPct), func(k float64) bool { return k < spot })
	if !ok {
		return nil, false
	}
	return []pick{
		{role: role(contracts.OptionCall, r.Side), quote: call},
		{role: role(contracts.OptionPut, r.Side), quote: put},
	}, true
}

func (r VerticalSpread) resolve(b *book, spot float64) ([]pick, bool) {
	anchor, ok := b.nearest(r.OptionType, otmStrike(r.OptionType, spot, r.AnchorPct), nil)
	if !ok {
		return nil, false
	}
	further := anchor.Strike + spot*r.WidthPct/100
	beyond := func(k float64) bool { return k > anchor.Strike }
	if r.OptionType == contracts.OptionPut {
		further = anchor.Strike - spot*r.WidthPct/100
		beyond = func(k float64) bool { return k < anchor.Strike }
	}
	wing, ok := b.nearest(r.OptionType, further, beyond)
	if !ok {
		return nil, false
	}
	return []pick{
		{role: role(r.OptionType, r.Side), quote: anchor},
		{role: role(r.OptionType, opposite(r.Side)), quote: wing},
	}, true
}

func (r IronCondor) resolve(b *book, spot float64) ([]pick, bool) {
	shortPut, ok := b.nearest(contracts.OptionPut, otmStrike(contracts.OptionPut, spot, r.ShortOffsetPct), func(k float64) bool { return k < spot })
	if !ok {
		return nil, false
	}
	longPut, ok := b.nearest(contracts.OptionPut, shortPut.Strike-spot*r.WingWidthPct/100, func(k float64) bool { return k < shortPut.Strike })
	if !ok {
		return nil, false
	}
	shortCall, ok := b.nearest(contracts.OptionCall, otmStrike(contracts.OptionCall, spot, r.ShortOffsetPct), func(k float64) bool { return k > spot })
	if !ok {
		return nil, false
	}
	longCall, ok := b.nearest(contracts.OptionCall, shortCall.Strike+spot*r.WingWidthPct/100, func(k float64) bool { return k > shortCall.Strike })
	if !ok {
		return nil, false
	}
	return []pick{
		{role: contracts.LegLongPut, quote: longPut},
		{role: contracts.LegShortPut, quote: shortPut},
		{role: contracts.LegShortCall, quote: shortCall},
		{role: contracts.LegLongCall, quote: longCall},
	}, true
}
