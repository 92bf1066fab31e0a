package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStrategyType(t *testing.T) {
	tests := []struct {
		in   string
		want StrategyType
	}{
		{"Directional", StrategyDirectional},
		{"volatility", StrategyVolatility},
		{" INCOME ", StrategyIncome},
		{"leaps", StrategyLEAP},
		{"arbitrage", StrategyUnknown},
		{"", StrategyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseStrategyType(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != StrategyUnknown, got.Known())
		})
	}
}

func TestStrategyType_UnmarshalJSON(t *testing.T) {
	var req StrategyTimeframeRequest
	assert.NoError(t, json.Unmarshal([]byte(`{"ticker":"SPY","strategy_type":"leaps"}`), &req))
	assert.Equal(t, StrategyLEAP, req.StrategyType)

	assert.NoError(t, json.Unmarshal([]byte(`{"ticker":"SPY","strategy_type":"Foo"}`), &req))
	assert.Equal(t, StrategyUnknown, req.StrategyType)

	assert.Error(t, json.Unmarshal([]byte(`{"ticker":"SPY","strategy_type":7}`), &req))
}

func TestStrategyTimeframeRequest_Validate(t *testing.T) {
	rank := 140.0

	tests := []struct {
		name    string
		req     StrategyTimeframeRequest
		wantErr bool
	}{
		{"valid", StrategyTimeframeRequest{Ticker: "AAPL", ConfidenceScore: 0.8}, false},
		{"empty ticker", StrategyTimeframeRequest{Ticker: "  ", ConfidenceScore: 0.8}, true},
		{"confidence above one", StrategyTimeframeRequest{Ticker: "AAPL", ConfidenceScore: 1.2}, true},
		{"rank out of range", StrategyTimeframeRequest{Ticker: "AAPL", VolatilityRank: &rank}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTimeframeWindow(t *testing.T) {
	w := TimeframeWindow{MinDTE: 30, MaxDTE: 45, TargetDTE: 37}
	assert.True(t, w.Valid())
	assert.True(t, w.Contains(30))
	assert.True(t, w.Contains(45))
	assert.False(t, w.Contains(46))

	assert.False(t, TimeframeWindow{MinDTE: 40, MaxDTE: 30, TargetDTE: 35}.Valid())
}

func TestDaysToExpiration(t *testing.T) {
	ny := time.FixedZone("EDT", -4*3600)
	asOf := time.Date(2026, 10, 14, 22, 30, 0, 0, ny) // late evening, still the 14th in New York
	exp := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 37, DaysToExpiration(asOf, exp))
	assert.Equal(t, 0, DaysToExpiration(exp, exp))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, StatusLowLiquidity, StatusFromSelection(SelectionLowLiquidity))
	assert.Equal(t, StatusSuccess, StatusFromSelection(SelectionSuccess))
	assert.Equal(t, StatusTimeout, StatusFromFetch(FetchTimeout))
	assert.Equal(t, StatusAuthError, StatusFromFetch(FetchAuthError))
	assert.Equal(t, StatusAbortedAuth, StatusFromFetch(FetchSkipped))
	assert.Equal(t, StatusFetchFailed, StatusFromFetch(FetchUnknown))

	assert.True(t, StatusSuccess.IsUsable())
	assert.False(t, StatusLowLiquidity.IsUsable())

	assert.True(t, FetchRateLimit.Transient())
	assert.False(t, FetchAuthError.Transient())
	assert.False(t, FetchInsufficientData.Transient())
}

func TestParseOptionType(t *testing.T) {
	got, ok := ParseOptionType("C")
	assert.True(t, ok)
	assert.Equal(t, OptionCall, got)

	_, ok = ParseOptionType("straddle")
	assert.False(t, ok)
}
