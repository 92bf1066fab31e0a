// Package fetch wraps market-data provider calls with classification,
// bounded retries and the shared rate gate.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/internal/ratelimit"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/logger"
)

// Provider is the market-data transport. Implementations return errors
// wrapping the sentinels in this package where they can.
type Provider interface {
	Expirations(ctx context.Context, ticker string) ([]time.Time, error)
	Chain(ctx context.Context, ticker string, expiration time.Time) (contracts.ChainSnapshot, error)
}

// Outcome describes one fetch after its retry budget
type Outcome struct {
	Status   contracts.FetchStatus
	Attempts int
	Elapsed  time.Duration
	Err      error // last underlying error, nil on OK
}

// OK reports a successful fetch
func (o Outcome) OK() bool {
	return o.Status == contracts.FetchOK
}

// Sleeper waits d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const (
	opExpirations = "expirations"
	opChain       = "chain"
)

// Client is the retryable fetch client. Expected failures come back as an
// Outcome status; only malformed requests return an error.
type Client struct {
	provider    Provider
	gate        ratelimit.Gate
	maxAttempts int
	backoff     []time.Duration
	timeout     time.Duration
	sleep       Sleeper
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a client over provider, gated by gate
func NewClient(provider Provider, gate ratelimit.Gate, cfg config.AcquisitionConfig, log *logger.Logger, m *metrics.Metrics) *Client {
	if gate == nil {
		gate = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.Nop()
	}
	backoff := cfg.RetryBackoff
	if len(backoff) == 0 {
		backoff = config.DefaultRetryBackoff()
	}
	attempts := cfg.MaxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}

	return &Client{
		provider:    provider,
		gate:        gate,
		maxAttempts: attempts,
		backoff:     backoff,
		timeout:     timeout,
		sleep:       SleepContext,
		log:         log.WithField("component", "fetch"),
		metrics:     m,
	}
}

// WithSleeper replaces the backoff sleeper (tests)
func (c *Client) WithSleeper(s Sleeper) *Client {
	c.sleep = s
	return c
}

// FetchExpirations lists the expirations of ticker. An empty listing is
// INSUFFICIENT_DATA.
func (c *Client) FetchExpirations(ctx context.Context, ticker string) ([]time.Time, Outcome, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, Outcome{}, fmt.Errorf("%w: empty ticker", contracts.ErrInvalidRequest)
	}

	exps, out := retry(ctx, c, opExpirations, ticker, func(ctx context.Context) ([]time.Time, error) {
		exps, err := c.provider.Expirations(ctx, ticker)
		if err == nil && len(exps) == 0 {
			err = fmt.Errorf("%w: no expirations listed for %s", ErrInsufficientData, ticker)
		}
		return exps, err
	})
	return exps, out, nil
}

// FetchChain fetches the chain of (ticker, expiration). A chain without
// quotes is INSUFFICIENT_DATA.
func (c *Client) FetchChain(ctx context.Context, ticker string, expiration time.Time) (contracts.ChainSnapshot, Outcome, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return contracts.ChainSnapshot{}, Outcome{}, fmt.Errorf("%w: empty ticker", contracts.ErrInvalidRequest)
	}
	if expiration.IsZero() {
		return contracts.ChainSnapshot{}, Outcome{}, fmt.Errorf("%w: zero expiration", contracts.ErrInvalidRequest)
	}

	snap, out := retry(ctx, c, opChain, ticker, func(ctx context.Context) (contracts.ChainSnapshot, error) {
		snap, err := c.provider.Chain(ctx, ticker, expiration)
		if err == nil && len(snap.Quotes) == 0 {
			err = fmt.Errorf("%w: empty chain %s %s", ErrInsufficientData, ticker, expiration.Format(contracts.DateLayout))
		}
		return snap, err
	})
	return snap, out, nil
}

// retry runs call up to maxAttempts times. Each attempt passes the gate and
// gets its own timeout. After every failed transient attempt the client
// waits the attempt's backoff delay; AUTH_ERROR and INSUFFICIENT_DATA stop
// immediately.
func retry[T any](ctx context.Context, c *Client, op, ticker string, call func(context.Context) (T, error)) (T, Outcome) {
	var zero T
	start := time.Now()
	out := Outcome{Status: contracts.FetchUnknown}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		release, err := c.gate.Acquire(ctx)
		if err != nil {
			out.Err = err
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		v, err := call(attemptCtx)
		cancel()
		release()

		out.Attempts = attempt
		out.Status = Classify(err)
		out.Err = err
		c.metrics.FetchAttempt(op, string(out.Status))

		if out.Status == contracts.FetchOK {
			out.Elapsed = time.Since(start)
			c.metrics.FetchOutcome(op, string(out.Status))
			return v, out
		}

		c.log.WithFields(map[string]interface{}{
			"op":      op,
			"ticker":  ticker,
			"attempt": attempt,
			"status":  out.Status,
			"error":   err.Error(),
		}).Debug("fetch attempt failed")

		if !out.Status.Transient() {
			break
		}
		if err := c.sleep(ctx, c.delay(attempt)); err != nil {
			break
		}
	}

	out.Elapsed = time.Since(start)
	c.metrics.FetchOutcome(op, string(out.Status))
	if out.Status == contracts.FetchAuthError {
		c.log.WithFields(map[string]interface{}{"op": op, "ticker": ticker}).Warn("upstream authentication failed")
	}
	return zero, out
}

// delay is the backoff after the given 1-based attempt; the last configured
// delay repeats when attempts outnumber delays
func (c *Client) delay(attempt int) time.Duration {
	i := attempt - 1
	if i >= len(c.backoff) {
		i = len(c.backoff) - 1
	}
	return c.backoff[i]
}
