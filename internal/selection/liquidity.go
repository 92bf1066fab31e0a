package selection

import "github.com/wonny/optacq/internal/contracts"

// Thresholds are the liquidity gates for one session
type Thresholds struct {
	MinOpenInterest int64   `json:"min_open_interest"`
	MaxSpreadPct    float64 `json:"max_spread_pct"`
}

// Policy holds the per-session gates and how far a leg may drift from its target strike
type Policy struct {
	Regular              Thresholds `json:"regular"`
	AfterHours           Thresholds `json:"after_hours"`
	MaxStrikeDistancePct float64    `json:"max_strike_distance_pct"`
}

// ⭐ SSOT: 유동성 기준 (장중 OI 25 / 스프레드 10%, 장후 OI 10 / 스프레드 20%)
const (
	DefaultRegularMinOI         = 25
	DefaultRegularMaxSpreadPct  = 10.0
	DefaultAfterHoursMinOI      = 10
	DefaultAfterHoursMaxSpread  = 20.0
	DefaultMaxStrikeDistancePct = 15.0
	excellentMinOI              = 1000
	excellentMaxSpreadPct       = 2.0
	goodMinOI                   = 250
	goodMaxSpreadPct            = 5.0
)

// DefaultPolicy returns the built-in liquidity policy
func DefaultPolicy() Policy {
	return Policy{
		Regular:              Thresholds{MinOpenInterest: DefaultRegularMinOI, MaxSpreadPct: DefaultRegularMaxSpreadPct},
		AfterHours:           Thresholds{MinOpenInterest: DefaultAfterHoursMinOI, MaxSpreadPct: DefaultAfterHoursMaxSpread},
		MaxStrikeDistancePct: DefaultMaxStrikeDistancePct,
	}
}

// For returns the gates of session s
func (p Policy) For(s Session) Thresholds {
	if s == SessionAfterHours {
		return p.AfterHours
	}
	return p.Regular
}

// passes applies the gates to one normalized quote. A quote priced off the
// last trade has no observable spread and only passes after hours.
func (t Thresholds) passes(px pricing, oi int64, s Session) bool {
	if oi < t.MinOpenInterest {
		return false
	}
	if px.source == contracts.PriceLast {
		return s == SessionAfterHours
	}
	return px.spreadPct <= t.MaxSpreadPct
}

// grade buckets a contract for downstream weighting
func grade(px pricing, oi int64, t Thresholds, s Session) contracts.LiquidityGrade {
	observable := px.source == contracts.PriceMid
	switch {
	case observable && oi >= excellentMinOI && px.spreadPct <= excellentMaxSpreadPct:
		return contracts.LiquidityExcellent
	case observable && oi >= goodMinOI && px.spreadPct <= goodMaxSpreadPct:
		return contracts.LiquidityGood
	case t.passes(px, oi, s):
		return contracts.LiquidityAcceptable
	case oi >= t.MinOpenInterest/2 || (observable && px.spreadPct <= 2*t.MaxSpreadPct):
		return contracts.LiquidityThin
	default:
		return contracts.LiquidityIlliquid
	}
}
