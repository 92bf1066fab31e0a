package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/fetch"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/httputil"
	"github.com/wonny/optacq/pkg/logger"
)

// Client is the REST option chain provider
// ⭐ SSOT: 옵션 체인 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a provider client. The per-attempt timeout is owned by
// the fetch client's context, so the HTTP client keeps its default ceiling.
func NewClient(cfg config.MarketDataConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: httputil.New(log).WithBearerToken(cfg.Token).WithHeader("Accept", "application/json"),
		logger:     log,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// expirationsResponse: GET /options/expirations?symbol=AAPL
type expirationsResponse struct {
	Symbol      string   `json:"symbol"`
	Expirations []string `json:"expirations"`
}

// chainResponse: GET /options/chain?symbol=AAPL&expiration=2026-11-20
type chainResponse struct {
	Symbol          string        `json:"symbol"`
	Expiration      string        `json:"expiration"`
	UnderlyingPrice float64       `json:"underlying_price"`
	Options         []optionQuote `json:"options"`
}

type optionQuote struct {
	Symbol       string   `json:"symbol"`
	Type         string   `json:"type"` // call | put | C | P
	Strike       float64  `json:"strike"`
	Bid          float64  `json:"bid"`
	Ask          float64  `json:"ask"`
	Last         float64  `json:"last"`
	OpenInterest int64    `json:"open_interest"`
	Volume       int64    `json:"volume"`
	IV           *float64 `json:"iv"`
	Greeks       *greeks  `json:"greeks"`
}

type greeks struct {
	Delta *float64 `json:"delta"`
	Gamma *float64 `json:"gamma"`
	Vega  *float64 `json:"vega"`
	Theta *float64 `json:"theta"`
}

// Expirations implements fetch.Provider
func (c *Client) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	params := url.Values{"symbol": {ticker}}

	var resp expirationsResponse
	if err := c.getJSON(ctx, "/options/expirations", params, &resp); err != nil {
		return nil, err
	}

	exps := make([]time.Time, 0, len(resp.Expirations))
	for _, s := range resp.Expirations {
		d, err := time.Parse(contracts.DateLayout, s)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{"ticker": ticker, "value": s}).Warn("skipping unparseable expiration")
			continue
		}
		exps = append(exps, d)
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })
	return exps, nil
}

// Chain implements fetch.Provider
func (c *Client) Chain(ctx context.Context, ticker string, expiration time.Time) (contracts.ChainSnapshot, error) {
	params := url.Values{
		"symbol":     {ticker},
		"expiration": {expiration.Format(contracts.DateLayout)},
		"greeks":     {"true"},
	}

	var resp chainResponse
	if err := c.getJSON(ctx, "/options/chain", params, &resp); err != nil {
		return contracts.ChainSnapshot{}, err
	}

	snap := contracts.ChainSnapshot{
		Ticker:          ticker,
		Expiration:      contracts.DateOnly(expiration),
		UnderlyingPrice: resp.UnderlyingPrice,
		Quotes:          make([]contracts.OptionQuote, 0, len(resp.Options)),
	}
	for _, o := range resp.Options {
		q, ok := o.toQuote()
		if !ok {
			continue
		}
		snap.Quotes = append(snap.Quotes, q)
	}
	return snap, nil
}

// getJSON maps transport failures onto the fetch sentinels where the
// meaning is unambiguous; HTTP status errors are classified by fetch itself.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	err := c.httpClient.GetJSON(ctx, fullURL, dest)
	if err == nil {
		return nil
	}

	var statusErr *httputil.StatusError
	switch {
	case errors.As(err, &statusErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", path, fetch.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// toQuote keeps provider-supplied Greeks only when all four are present,
// so a partial set never masquerades as real values
func (o optionQuote) toQuote() (contracts.OptionQuote, bool) {
	optType, ok := contracts.ParseOptionType(o.Type)
	if !ok || o.Strike <= 0 {
		return contracts.OptionQuote{}, false
	}

	q := contracts.OptionQuote{
		Symbol:       o.Symbol,
		OptionType:   optType,
		Strike:       o.Strike,
		Bid:          o.Bid,
		Ask:          o.Ask,
		Last:         o.Last,
		OpenInterest: o.OpenInterest,
		Volume:       o.Volume,
		IV:           o.IV,
	}
	if g := o.Greeks; g != nil && g.Delta != nil && g.Gamma != nil && g.Vega != nil && g.Theta != nil {
		q.Greeks = &contracts.Greeks{Delta: *g.Delta, Gamma: *g.Gamma, Vega: *g.Vega, Theta: *g.Theta}
	}
	return q, true
}
