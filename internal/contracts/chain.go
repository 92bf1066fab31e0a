package contracts

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical date format for keys and file names
const DateLayout = "2006-01-02"

// OptionType is call or put
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// ParseOptionType accepts call/put/c/p in any case
func ParseOptionType(s string) (OptionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return OptionCall, true
	case "put", "p":
		return OptionPut, true
	}
	return "", false
}

// Greeks as supplied by a provider or approximated by the proxy policy
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
}

// OptionQuote is one raw contract observation. Nothing computed lives here.
type OptionQuote struct {
	Symbol       string     `json:"symbol,omitempty"`
	OptionType   OptionType `json:"option_type"`
	Strike       float64    `json:"strike"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Last         float64    `json:"last"`
	OpenInterest int64      `json:"open_interest"`
	Volume       int64      `json:"volume"`
	IV           *float64   `json:"iv,omitempty"`
	Greeks       *Greeks    `json:"greeks,omitempty"` // nil when the provider omitted them
}

// ChainSnapshot is the provider payload for one (ticker, expiration)
type ChainSnapshot struct {
	Ticker          string        `json:"ticker"`
	Expiration      time.Time     `json:"expiration"`
	UnderlyingPrice float64       `json:"underlying_price"`
	Quotes          []OptionQuote `json:"quotes"`
}

// ChainKey addresses one cached snapshot
type ChainKey struct {
	Ticker     string    `json:"ticker"`
	Expiration time.Time `json:"expiration"`
	AsOf       time.Time `json:"as_of"`
}

// String returns TICKER/expiration/as_of
func (k ChainKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Ticker, k.Expiration.Format(DateLayout), k.AsOf.Format(DateLayout))
}

// CachedChainEntry is an immutable raw snapshot for one key.
// ⭐ SSOT: 캐시에는 관측된 시장 데이터만 저장 (선택/점수 결과 저장 금지)
type CachedChainEntry struct {
	Key       ChainKey      `json:"key"`
	FetchedAt time.Time     `json:"fetched_at"`
	Snapshot  ChainSnapshot `json:"snapshot"`
}

// ExpirationListing is the raw list of listed expirations for a ticker on a date
type ExpirationListing struct {
	Ticker      string      `json:"ticker"`
	AsOf        time.Time   `json:"as_of"`
	FetchedAt   time.Time   `json:"fetched_at"`
	Expirations []time.Time `json:"expirations"`
}

// DateOnly truncates t to its calendar date in t's location, returned as UTC midnight
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysToExpiration counts calendar days from the as-of date to the expiration date
func DaysToExpiration(asOf, expiration time.Time) int {
	return int(DateOnly(expiration).Sub(DateOnly(asOf)).Hours() / 24)
}
