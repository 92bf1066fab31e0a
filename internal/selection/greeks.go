package selection

import (
	"math"

	"github.com/wonny/optacq/internal/contracts"
)

// Greek proxy buckets, used only when the provider omitted Greeks.
// Every proxied leg carries GreeksSource = proxy.
const (
	atmBandPct  = 2.0
	nearBandPct = 5.0

	deltaATM = 0.5
	deltaITM = 0.7
	deltaOTM = 0.3

	gammaATM  = 0.05
	gammaNear = 0.03
	gammaFar  = 0.01

	vegaATM  = 0.20
	vegaNear = 0.15
	vegaFar  = 0.08
)

// ProxyGreeks approximates Greeks from moneyness, option type and DTE.
// Put deltas mirror call deltas with a negative sign.
func ProxyGreeks(optType contracts.OptionType, strike, spot float64, dte int) contracts.Greeks {
	var g contracts.Greeks

	moneyness := 0.0 // % the strike sits above spot
	if spot > 0 {
		moneyness = (strike - spot) / spot * 100
	}
	distance := math.Abs(moneyness)

	switch {
	case distance <= atmBandPct:
		g.Delta = deltaATM
	case (optType == contracts.OptionCall) == (moneyness < 0):
		// call below spot or put above spot
		g.Delta = deltaITM
	default:
		g.Delta = deltaOTM
	}
	if optType == contracts.OptionPut {
		g.Delta = -g.Delta
	}

	switch {
	case distance <= atmBandPct:
		g.Gamma, g.Vega = gammaATM, vegaATM
	case distance <= nearBandPct:
		g.Gamma, g.Vega = gammaNear, vegaNear
	default:
		g.Gamma, g.Vega = gammaFar, vegaFar
	}

	g.Theta = proxyTheta(dte)
	return g
}

func proxyTheta(dte int) float64 {
	switch {
	case dte <= 7:
		return -0.10
	case dte <= 30:
		return -0.05
	case dte <= 60:
		return -0.03
	default:
		return -0.01
	}
}
