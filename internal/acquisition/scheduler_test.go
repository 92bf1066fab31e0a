package acquisition

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optacq/internal/chaincache"
	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/fetch"
	"github.com/wonny/optacq/internal/ratelimit"
	"github.com/wonny/optacq/internal/selection"
	"github.com/wonny/optacq/internal/strategyconfig"
	"github.com/wonny/optacq/internal/timeframe"
	"github.com/wonny/optacq/pkg/config"
)

var newYork, _ = time.LoadLocation("America/New_York")

// Wednesday afternoon, regular session
var testAsOf = time.Date(2026, 10, 14, 15, 0, 0, 0, newYork)

// weekly expirations 7..770 days out
func weeklyExpirations() []time.Time {
	base := contracts.DateOnly(testAsOf)
	exps := make([]time.Time, 0, 110)
	for k := 1; k <= 110; k++ {
		exps = append(exps, base.AddDate(0, 0, 7*k))
	}
	return exps
}

func chainQuotes(oi int64) []contracts.OptionQuote {
	var quotes []contracts.OptionQuote
	for k := 80.0; k <= 120; k += 5 {
		callMid := math.Max(100-k, 0) + 2
		putMid := math.Max(k-100, 0) + 2
		quotes = append(quotes,
			contracts.OptionQuote{OptionType: contracts.OptionCall, Strike: k, Bid: callMid - 0.05, Ask: callMid + 0.05, OpenInterest: oi, Volume: 10},
			contracts.OptionQuote{OptionType: contracts.OptionPut, Strike: k, Bid: putMid - 0.05, Ask: putMid + 0.05, OpenInterest: oi, Volume: 10},
		)
	}
	return quotes
}

// fakeProvider serves the same synthetic chain for every ticker.
// fail returns an error to inject for (op, ticker, call number).
type fakeProvider struct {
	mu    sync.Mutex
	oi    int64
	calls map[string]int
	fail  func(op, ticker string, n int) error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{oi: 500, calls: make(map[string]int)}
}

func (p *fakeProvider) count(op, ticker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[op+"/"+ticker]++
	return p.calls[op+"/"+ticker]
}

func (p *fakeProvider) Calls(op, ticker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op+"/"+ticker]
}

func (p *fakeProvider) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (p *fakeProvider) Expirations(ctx context.Context, ticker string) ([]time.Time, error) {
	n := p.count("expirations", ticker)
	if p.fail != nil {
		if err := p.fail("expirations", ticker, n); err != nil {
			return nil, err
		}
	}
	return weeklyExpirations(), nil
}

func (p *fakeProvider) Chain(ctx context.Context, ticker string, exp time.Time) (contracts.ChainSnapshot, error) {
	n := p.count("chain", ticker)
	if p.fail != nil {
		if err := p.fail("chain", ticker, n); err != nil {
			return contracts.ChainSnapshot{}, err
		}
	}
	return contracts.ChainSnapshot{Ticker: ticker, Expiration: exp, UnderlyingPrice: 100, Quotes: chainQuotes(p.oi)}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func testConfig() config.AcquisitionConfig {
	cfg := config.DefaultAcquisition()
	cfg.SessionOverride = "regular"
	return cfg
}

type fixture struct {
	provider  *fakeProvider
	scheduler *Scheduler
	assigner  *timeframe.Assigner
}

func newFixture(t *testing.T, cfg config.AcquisitionConfig, gate ratelimit.Gate, cache chaincache.Store) *fixture {
	t.Helper()
	cat, _, err := strategyconfig.Default()
	require.NoError(t, err)
	resolver, err := strategyconfig.NewResolver(cat)
	require.NoError(t, err)

	p := newFakeProvider()
	client := fetch.NewClient(p, gate, cfg, nil, nil).WithSleeper(noSleep)
	s := NewScheduler(client, cache, selection.NewSelector(cat.Policy()), resolver, cfg, nil, nil).WithSleeper(noSleep)
	return &fixture{provider: p, scheduler: s, assigner: timeframe.NewAssigner(cat.TimeframeTable())}
}

func (f *fixture) acquire(t *testing.T, reqs []contracts.StrategyTimeframeRequest) []contracts.AcquisitionResult {
	t.Helper()
	results, err := f.scheduler.Acquire(context.Background(), reqs, f.assigner.AssignAll(reqs), testAsOf)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	return results
}

func req(ticker, name string, typ contracts.StrategyType) contracts.StrategyTimeframeRequest {
	return contracts.StrategyTimeframeRequest{Ticker: ticker, StrategyName: name, StrategyType: typ, ConfidenceScore: 0.5}
}

func mixedBatch(n int) []contracts.StrategyTimeframeRequest {
	tickers := []string{"AAPL", "MSFT", "NVDA", "SPY", "QQQ", "BAD", "THIN"}
	strategies := []struct {
		name string
		typ  contracts.StrategyType
	}{
		{"LongCall", contracts.StrategyDirectional},
		{"LongStraddle", contracts.StrategyVolatility},
		{"BuyWrite", contracts.StrategyIncome},
		{"LEAPCall", contracts.StrategyLEAP},
		{"Mystery", contracts.StrategyUnknown},
	}
	reqs := make([]contracts.StrategyTimeframeRequest, n)
	for i := range reqs {
		s := strategies[i%len(strategies)]
		reqs[i] = req(tickers[i%len(tickers)], s.name, s.typ)
	}
	return reqs
}

func TestAcquire_RowPreservationAcrossWorkerCounts(t *testing.T) {
	reqs := mixedBatch(41)

	for workers := 1; workers <= 16; workers++ {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			cfg := testConfig()
			cfg.WorkerCount = workers
			cfg.ChunkSize = 7

			f := newFixture(t, cfg, ratelimit.Unlimited{}, nil)
			f.provider.fail = func(op, ticker string, n int) error {
				if ticker == "BAD" {
					return fetch.ErrTimeout
				}
				return nil
			}

			results := f.acquire(t, reqs)
			for i, res := range results {
				assert.Equal(t, i, res.RequestIdentity)
				assert.Equal(t, reqs[i], res.Request)
				assert.NotEmpty(t, res.Status)
				assert.GreaterOrEqual(t, res.WorkerID, 1)
				assert.LessOrEqual(t, res.WorkerID, workers)
				if res.Request.Ticker == "BAD" {
					assert.Equal(t, contracts.StatusTimeout, res.Status)
					assert.Empty(t, res.Contracts)
				}
			}
		})
	}
}

func TestAcquire_MultiStrategyTicker(t *testing.T) {
	f := newFixture(t, testConfig(), ratelimit.Unlimited{}, nil)

	results := f.acquire(t, []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		req("AAPL", "LongStraddle", contracts.StrategyVolatility),
		req("AAPL", "BuyWrite", contracts.StrategyIncome),
	})

	labels := map[string]bool{}
	expirations := map[time.Time]bool{}
	for _, res := range results {
		require.Equal(t, contracts.StatusSuccess, res.Status, res.Request.StrategyName)
		require.NotEmpty(t, res.Contracts)
		labels[res.Timeframe.Label] = true
		expirations[res.PrimaryExpiration()] = true
	}
	assert.Len(t, labels, 3)
	assert.GreaterOrEqual(t, len(expirations), 2)

	assert.Len(t, results[1].Contracts, 2, "straddle has two legs")
	assert.Equal(t, contracts.LegShortCall, results[2].Contracts[0].LegRole)

	// one listing for the ticker, one chain per distinct expiration
	assert.Equal(t, 1, f.provider.Calls("expirations", "AAPL"))
	assert.Equal(t, len(expirations), f.provider.Calls("chain", "AAPL"))
}

func TestAcquire_DTEMatchesChosenExpiration(t *testing.T) {
	f := newFixture(t, testConfig(), ratelimit.Unlimited{}, nil)
	reqs := []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		req("AAPL", "LongStraddle", contracts.StrategyVolatility),
		req("AAPL", "BuyWrite", contracts.StrategyIncome),
	}

	// late evening in New York is already the next day in UTC
	asOf := time.Date(2026, 10, 14, 22, 30, 0, 0, newYork)
	results, err := f.scheduler.Acquire(context.Background(), reqs, f.assigner.AssignAll(reqs), asOf)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	for _, res := range results {
		require.Equal(t, contracts.StatusSuccess, res.Status, res.Request.StrategyName)
		want := contracts.DaysToExpiration(asOf, res.PrimaryExpiration())
		assert.True(t, res.Timeframe.Contains(want))
		for _, c := range res.Contracts {
			assert.Equal(t, want, c.ActualDTE, c.ContractSymbol)
		}
	}
}

func TestAcquire_ReusesChainsWithinTicker(t *testing.T) {
	f := newFixture(t, testConfig(), ratelimit.Unlimited{}, nil)

	results := f.acquire(t, []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		req("AAPL", "LongPut", contracts.StrategyDirectional),
		req("AAPL", "BullCallSpread", contracts.StrategyDirectional),
	})

	assert.Equal(t, 1, f.provider.Calls("expirations", "AAPL"))
	assert.Equal(t, 1, f.provider.Calls("chain", "AAPL"))
	assert.False(t, results[0].CacheHit)
	assert.True(t, results[1].CacheHit)
	assert.True(t, results[2].CacheHit)
	for _, res := range results {
		assert.Equal(t, contracts.StatusSuccess, res.Status)
		assert.Equal(t, results[0].PrimaryExpiration(), res.PrimaryExpiration())
	}
}

func TestAcquire_CacheAcrossRuns(t *testing.T) {
	store := chaincache.NewFileStore(t.TempDir(), 24*time.Hour, nil, nil)
	f := newFixture(t, testConfig(), ratelimit.Unlimited{}, store)
	reqs := []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		req("MSFT", "LongStraddle", contracts.StrategyVolatility),
	}

	first := f.acquire(t, reqs)
	calls := f.provider.total()
	second := f.acquire(t, reqs)

	assert.Equal(t, calls, f.provider.total(), "second run is served from disk")
	for i := range reqs {
		assert.False(t, first[i].CacheHit)
		assert.True(t, second[i].CacheHit)
		assert.Equal(t, first[i].Contracts, second[i].Contracts)
	}
}

// countingGate wraps a gate and records the peak number of holders
type countingGate struct {
	inner    ratelimit.Gate
	inFlight atomic.Int32
	peak     atomic.Int32
	acquired atomic.Int32
}

func (g *countingGate) Acquire(ctx context.Context) (func(), error) {
	release, err := g.inner.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	g.acquired.Add(1)
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() {
		g.inFlight.Add(-1)
		release()
	}, nil
}

func TestAcquire_RateLimitRecovery(t *testing.T) {
	cfg := testConfig()
	gate := &countingGate{inner: ratelimit.NewLocal(cfg.RateLimitPerSecond)}
	f := newFixture(t, cfg, gate, nil)
	f.provider.fail = func(op, ticker string, n int) error {
		if n == 1 {
			return fetch.ErrRateLimited
		}
		return nil
	}

	tickers := []string{"AAPL", "MSFT", "NVDA", "SPY", "QQQ"}
	reqs := make([]contracts.StrategyTimeframeRequest, 50)
	for i := range reqs {
		reqs[i] = req(tickers[i%len(tickers)], "LongCall", contracts.StrategyDirectional)
	}

	results := f.acquire(t, reqs)
	for _, res := range results {
		assert.Equal(t, contracts.FetchOK, res.FetchStatus)
		assert.Equal(t, contracts.StatusSuccess, res.Status)
	}
	assert.LessOrEqual(t, int(gate.peak.Load()), cfg.RateLimitPerSecond)
	// a rate-limited and a successful attempt for each listing and chain
	assert.Equal(t, int32(len(tickers)*4), gate.acquired.Load())
}

func TestAcquire_AuthFailureAbortsRemainingBatch(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 1
	f := newFixture(t, cfg, ratelimit.Unlimited{}, nil)
	f.provider.fail = func(op, ticker string, n int) error {
		if ticker == "AAPL" {
			return fetch.ErrUnauthorized
		}
		return nil
	}

	results := f.acquire(t, []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		req("AAPL", "LongPut", contracts.StrategyDirectional),
		req("MSFT", "LongCall", contracts.StrategyDirectional),
		req("NVDA", "LongCall", contracts.StrategyDirectional),
	})

	assert.Equal(t, contracts.StatusAuthError, results[0].Status)
	for _, res := range results[1:] {
		assert.Equal(t, contracts.StatusAbortedAuth, res.Status)
		assert.Equal(t, contracts.FetchSkipped, res.FetchStatus)
		assert.NotEmpty(t, res.Error)
	}
	assert.Equal(t, 1, f.provider.total(), "auth errors are not retried and nothing else is fetched")
}

func TestAcquire_InsufficientDataIsPerTicker(t *testing.T) {
	f := newFixture(t, testConfig(), ratelimit.Unlimited{}, nil)
	f.provider.fail = func(op, ticker string, n int) error {
		if ticker == "GHOST" && op == "chain" {
			return fetch.ErrInsufficientData
		}
		return nil
	}

	results := f.acquire(t, []contracts.StrategyTimeframeRequest{
		req("GHOST", "LongCall", contracts.StrategyDirectional),
		req("GHOST", "LongPut", contracts.StrategyDirectional),
		req("AAPL", "LongCall", contracts.StrategyDirectional),
	})

	assert.Equal(t, contracts.StatusInsufficientData, results[0].Status)
	assert.Equal(t, contracts.StatusInsufficientData, results[1].Status)
	assert.Equal(t, contracts.StatusSuccess, results[2].Status)
	assert.Equal(t, 1, f.provider.Calls("chain", "GHOST"), "failure is reused within the ticker")
}

func TestAcquire_LowLiquidityAfterHours(t *testing.T) {
	cfg := testConfig()
	cfg.SessionOverride = "after_hours"
	f := newFixture(t, cfg, ratelimit.Unlimited{}, nil)
	f.provider.oi = 5

	results := f.acquire(t, []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		req("AAPL", "LongStraddle", contracts.StrategyVolatility),
	})
	for _, res := range results {
		assert.Equal(t, contracts.StatusLowLiquidity, res.Status)
		assert.Equal(t, contracts.FetchOK, res.FetchStatus)
		assert.Empty(t, res.Contracts)
	}
}

func TestAcquire_InvalidRequestStillReported(t *testing.T) {
	f := newFixture(t, testConfig(), ratelimit.Unlimited{}, nil)

	results := f.acquire(t, []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		{Ticker: "  ", StrategyName: "LongCall", StrategyType: contracts.StrategyDirectional},
		{Ticker: "MSFT", StrategyName: "LongCall", StrategyType: contracts.StrategyDirectional, ConfidenceScore: 3},
	})

	assert.Equal(t, contracts.StatusSuccess, results[0].Status)
	assert.Equal(t, contracts.StatusInvalidRequest, results[1].Status)
	assert.Equal(t, contracts.StatusInvalidRequest, results[2].Status)
	assert.Contains(t, results[2].Error, "confidence")
	assert.Zero(t, f.provider.Calls("expirations", "MSFT"))
}

func TestAcquire_MismatchedWindows(t *testing.T) {
	f := newFixture(t, testConfig(), ratelimit.Unlimited{}, nil)
	_, err := f.scheduler.Acquire(context.Background(), mixedBatch(3), nil, testAsOf)
	assert.Error(t, err)
}

func TestAcquire_PausesBetweenChunks(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 2
	cfg.ChunkSleep = 250 * time.Millisecond
	f := newFixture(t, cfg, ratelimit.Unlimited{}, nil)

	var mu sync.Mutex
	var pauses []time.Duration
	f.scheduler.WithSleeper(func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		pauses = append(pauses, d)
		return nil
	})

	f.acquire(t, []contracts.StrategyTimeframeRequest{
		req("AAPL", "LongCall", contracts.StrategyDirectional),
		req("MSFT", "LongCall", contracts.StrategyDirectional),
		req("NVDA", "LongCall", contracts.StrategyDirectional),
		req("SPY", "LongCall", contracts.StrategyDirectional),
		req("SPY", "LongPut", contracts.StrategyDirectional),
		req("SPY", "LongStraddle", contracts.StrategyVolatility),
	})

	// [AAPL MSFT] [NVDA] [SPY×3]
	assert.Equal(t, []time.Duration{cfg.ChunkSleep, cfg.ChunkSleep}, pauses)
}

func TestPlanChunks(t *testing.T) {
	g := func(ticker string, n int) group {
		return group{ticker: ticker, items: make([]item, n)}
	}
	tickers := func(chunks [][]group) [][]string {
		out := make([][]string, len(chunks))
		for i, c := range chunks {
			for _, g := range c {
				out[i] = append(out[i], g.ticker)
			}
		}
		return out
	}

	chunks := planChunks([]group{g("A", 2), g("B", 3), g("C", 1), g("D", 9), g("E", 4)}, 5)
	assert.Equal(t, [][]string{{"A", "B"}, {"C"}, {"D"}, {"E"}}, tickers(chunks))
	assert.Empty(t, planChunks(nil, 5))
}

func TestGroupByTicker_CopiesRequests(t *testing.T) {
	rank := 40.0
	reqs := []contracts.StrategyTimeframeRequest{
		{Ticker: "aapl", StrategyName: "LongCall", VolatilityRank: &rank},
		{Ticker: "AAPL ", StrategyName: "LongPut"},
		{Ticker: "MSFT", StrategyName: "LongCall"},
	}
	windows := make([]contracts.TimeframeWindow, len(reqs))

	groups, invalid := groupByTicker(reqs, windows)
	require.Len(t, groups, 2)
	assert.Empty(t, invalid)
	assert.Equal(t, "AAPL", groups[0].ticker)
	assert.Len(t, groups[0].items, 2)

	rank = 99
	assert.Equal(t, 40.0, *groups[0].items[0].request.VolatilityRank)
}
