package selection

import (
	"math"
	"sort"

	"github.com/wonny/optacq/internal/contracts"
)

// book indexes one chain's quotes by option type and strike
type book struct {
	calls       []contracts.OptionQuote // sorted by strike
	puts        []contracts.OptionQuote
	maxDistance float64 // absolute strike distance a leg may sit from its target
}

// newBook keeps quotes passing keep; duplicate (type, strike) pairs keep the
// higher open interest so resolution is deterministic.
func newBook(quotes []contracts.OptionQuote, maxDistance float64, keep func(contracts.OptionQuote) bool) *book {
	byKey := make(map[contracts.OptionType]map[float64]contracts.OptionQuote, 2)
	for _, q := range quotes {
		if q.Strike <= 0 || (q.OptionType != contracts.OptionCall && q.OptionType != contracts.OptionPut) {
			continue
		}
		if keep != nil && !keep(q) {
			continue
		}
		m := byKey[q.OptionType]
		if m == nil {
			m = make(map[float64]contracts.OptionQuote)
			byKey[q.OptionType] = m
		}
		if prev, ok := m[q.Strike]; ok && prev.OpenInterest >= q.OpenInterest {
			continue
		}
		m[q.Strike] = q
	}

	return &book{
		calls:       sortedQuotes(byKey[contracts.OptionCall]),
		puts:        sortedQuotes(byKey[contracts.OptionPut]),
		maxDistance: maxDistance,
	}
}

func sortedQuotes(m map[float64]contracts.OptionQuote) []contracts.OptionQuote {
	out := make([]contracts.OptionQuote, 0, len(m))
	for _, q := range m {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

func (b *book) side(t contracts.OptionType) []contracts.OptionQuote {
	if t == contracts.OptionCall {
		return b.calls
	}
	return b.puts
}

func (b *book) empty() bool {
	return len(b.calls) == 0 && len(b.puts) == 0
}

// nearest returns the quote of type t closest to target that satisfies allow.
// Ties go to the lower strike.
func (b *book) nearest(t contracts.OptionType, target float64, allow func(float64) bool) (contracts.OptionQuote, bool) {
	var best contracts.OptionQuote
	bestDist := math.Inf(1)
	for _, q := range b.side(t) {
		if allow != nil && !allow(q.Strike) {
			continue
		}
		if d := math.Abs(q.Strike - target); d < bestDist {
			best, bestDist = q, d
		}
	}
	if math.IsInf(bestDist, 1) || bestDist > b.maxDistance {
		return contracts.OptionQuote{}, false
	}
	return best, true
}

// at returns the quote of type t at exactly strike
func (b *book) at(t contracts.OptionType, strike float64) (contracts.OptionQuote, bool) {
	quotes := b.side(t)
	i := sort.Search(len(quotes), func(i int) bool { return quotes[i].Strike >= strike })
	if i < len(quotes) && quotes[i].Strike == strike {
		return quotes[i], true
	}
	return contracts.OptionQuote{}, false
}

// nearestCommonStrike is the strike closest to spot that lists both a call and a put
func (b *book) nearestCommonStrike(spot float64) (float64, bool) {
	best := 0.0
	bestDist := math.Inf(1)
	for _, c := range b.calls {
		if _, ok := b.at(contracts.OptionPut, c.Strike); !ok {
			continue
		}
		if d := math.Abs(c.Strike - spot); d < bestDist {
			best, bestDist = c.Strike, d
		}
	}
	if math.IsInf(bestDist, 1) || bestDist > b.maxDistance {
		return 0, false
	}
	return best, true
}

// impliedSpot estimates the underlying from put-call parity when the provider
// omitted it: the strike where call and put mids are closest.
func (b *book) impliedSpot() (float64, bool) {
	best := 0.0
	bestGap := math.Inf(1)
	for _, c := range b.calls {
		p, ok := b.at(contracts.OptionPut, c.Strike)
		if !ok {
			continue
		}
		cp, ok := normalize(c)
		if !ok {
			continue
		}
		pp, ok := normalize(p)
		if !ok {
			continue
		}
		if gap := math.Abs(cp.mid - pp.mid); gap < bestGap {
			best, bestGap = c.Strike, gap
		}
	}
	return best, !math.IsInf(bestGap, 1)
}
