package selection

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/optacq/internal/contracts"
)

const (
	midPlaces    = 4
	spreadPlaces = 2
)

var hundred = decimal.NewFromInt(100)

// pricing is the normalized view of one quote
type pricing struct {
	mid       float64
	spreadPct float64 // meaningless when source is PriceLast
	source    contracts.PriceSource
}

// normalize derives the mid price from bid/ask, falling back to the last
// trade only when both sides are non-positive. ok is false when the quote
// carries no usable price at all.
func normalize(q contracts.OptionQuote) (pricing, bool) {
	bid := decimal.NewFromFloat(q.Bid)
	ask := decimal.NewFromFloat(q.Ask)

	if !bid.IsPositive() && !ask.IsPositive() {
		last := decimal.NewFromFloat(q.Last)
		if !last.IsPositive() {
			return pricing{}, false
		}
		return pricing{mid: last.Round(midPlaces).InexactFloat64(), source: contracts.PriceLast}, true
	}

	bid = decimal.Max(bid, decimal.Zero)
	ask = decimal.Max(ask, decimal.Zero)
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))
	spread := ask.Sub(bid).Abs().Div(mid).Mul(hundred)

	return pricing{
		mid:       mid.Round(midPlaces).InexactFloat64(),
		spreadPct: spread.Round(spreadPlaces).InexactFloat64(),
		source:    contracts.PriceMid,
	}, true
}
