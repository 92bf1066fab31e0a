package selection

import (
	"sort"
	"time"

	"github.com/wonny/optacq/internal/contracts"
)

// Selection is the outcome of one Select call
type Selection struct {
	Status     contracts.SelectionStatus
	Expiration time.Time
	Contracts  []contracts.SelectedContract // empty unless Status is Success
}

// Selector picks expiration and strikes for one strategy from raw chain entries.
// It holds no state besides its policy and is safe for concurrent use.
type Selector struct {
	policy Policy
}

// NewSelector creates a selector with the given liquidity policy
func NewSelector(policy Policy) *Selector {
	return &Selector{policy: policy}
}

// Policy returns the liquidity policy in effect
func (s *Selector) Policy() Policy {
	return s.policy
}

// ChooseExpiration returns the expiration inside the window closest to its
// target DTE. Ties go to the earlier date.
func ChooseExpiration(expirations []time.Time, asOf time.Time, window contracts.TimeframeWindow) (time.Time, bool) {
	sorted := append([]time.Time(nil), expirations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var best time.Time
	bestDist := -1
	for _, exp := range sorted {
		dte := contracts.DaysToExpiration(asOf, exp)
		if !window.Contains(dte) {
			continue
		}
		dist := dte - window.TargetDTE
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = exp, dist
		}
	}
	return best, bestDist >= 0
}

// Select is SelectAt with the as-of date carried by the first entry's key
func (s *Selector) Select(entries []contracts.CachedChainEntry, window contracts.TimeframeWindow, spec StrategySpec, session Session) Selection {
	var asOf time.Time
	if len(entries) > 0 {
		asOf = entries[0].Key.AsOf
	}
	return s.SelectAt(entries, asOf, window, spec, session)
}

// SelectAt runs expiration choice, leg resolution, liquidity gating and price
// normalization for one strategy. asOf drives both the expiration choice and
// the reported DTE. A structure that cannot be built on the full chain is
// No_Suitable_Strikes; one that can be built only with contracts failing the
// session gates is Low_Liquidity.
func (s *Selector) SelectAt(entries []contracts.CachedChainEntry, asOf time.Time, window contracts.TimeframeWindow, spec StrategySpec, session Session) Selection {
	entry, ok := s.chooseEntry(entries, asOf, window)
	if !ok {
		return Selection{Status: contracts.SelectionNoExpirations}
	}

	exp := entry.Key.Expiration
	out := Selection{Status: contracts.SelectionNoSuitableStrikes, Expiration: exp}
	if spec.Rule == nil {
		return out
	}

	quotes := entry.Snapshot.Quotes
	full := newBook(quotes, 0, nil)
	if full.empty() {
		return out
	}

	spot := entry.Snapshot.UnderlyingPrice
	if spot <= 0 {
		if spot, ok = full.impliedSpot(); !ok {
			return out
		}
	}
	maxDistance := spot * s.policy.MaxStrikeDistancePct / 100
	full.maxDistance = maxDistance

	if _, ok := spec.Rule.resolve(full, spot); !ok {
		return out
	}

	gates := s.policy.For(session)
	liquid := newBook(quotes, maxDistance, func(q contracts.OptionQuote) bool {
		px, ok := normalize(q)
		return ok && gates.passes(px, q.OpenInterest, session)
	})
	picks, ok := spec.Rule.resolve(liquid, spot)
	if !ok {
		out.Status = contracts.SelectionLowLiquidity
		return out
	}

	ticker := entry.Key.Ticker
	if ticker == "" {
		ticker = entry.Snapshot.Ticker
	}
	dte := contracts.DaysToExpiration(asOf, exp)

	legs := make([]contracts.SelectedContract, 0, len(picks))
	for _, p := range picks {
		legs = append(legs, s.leg(ticker, exp, dte, spot, p, gates, session))
	}
	out.Status = contracts.SelectionSuccess
	out.Contracts = legs
	return out
}

// chooseEntry applies ChooseExpiration to the entries' expirations
func (s *Selector) chooseEntry(entries []contracts.CachedChainEntry, asOf time.Time, window contracts.TimeframeWindow) (contracts.CachedChainEntry, bool) {
	if len(entries) == 0 {
		return contracts.CachedChainEntry{}, false
	}
	exps := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		exps = append(exps, e.Key.Expiration)
	}
	exp, ok := ChooseExpiration(exps, asOf, window)
	if !ok {
		return contracts.CachedChainEntry{}, false
	}
	for _, e := range entries {
		if e.Key.Expiration.Equal(exp) {
			return e, true
		}
	}
	return contracts.CachedChainEntry{}, false
}

func (s *Selector) leg(ticker string, exp time.Time, dte int, spot float64, p pick, gates Thresholds, session Session) contracts.SelectedContract {
	q := p.quote
	px, _ := normalize(q)

	symbol := q.Symbol
	if symbol == "" {
		symbol = OCCSymbol(ticker, exp, q.OptionType, q.Strike)
	}

	greeks, source := ProxyGreeks(q.OptionType, q.Strike, spot, dte), contracts.GreeksProxy
	if q.Greeks != nil {
		greeks, source = *q.Greeks, contracts.GreeksProvider
	}

	return contracts.SelectedContract{
		ContractSymbol:  symbol,
		Ticker:          ticker,
		OptionType:      q.OptionType,
		LegRole:         p.role,
		Strike:          q.Strike,
		Expiration:      exp,
		ActualDTE:       dte,
		MidPrice:        px.mid,
		PriceSource:     px.source,
		Bid:             q.Bid,
		Ask:             q.Ask,
		SpreadPct:       px.spreadPct,
		OpenInterest:    q.OpenInterest,
		Volume:          q.Volume,
		Delta:           greeks.Delta,
		Gamma:           greeks.Gamma,
		Vega:            greeks.Vega,
		Theta:           greeks.Theta,
		GreeksSource:    source,
		LiquidityGrade:  grade(px, q.OpenInterest, gates, session),
		SelectionStatus: contracts.SelectionSuccess,
	}
}
