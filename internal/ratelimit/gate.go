// Package ratelimit holds the single shared gate every upstream call passes.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/logger"
	"github.com/wonny/optacq/pkg/redis"
)

// Gate admits one upstream call. release must be called when the call
// finishes; it is safe to call more than once.
// ⭐ SSOT: 워커 간 유일한 공유 가변 상태
type Gate interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Unlimited admits everything immediately (tests, offline replays)
type Unlimited struct{}

func (Unlimited) Acquire(context.Context) (func(), error) { return func() {}, nil }

// slots bounds calls in flight
type slots chan struct{}

func newSlots(n int) slots {
	if n < 1 {
		n = 1
	}
	return make(slots, n)
}

func (s slots) take(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s slots) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-s }) }
}

// LocalGate is a token bucket of perSecond with burst perSecond, plus at
// most perSecond calls in flight.
type LocalGate struct {
	limiter *rate.Limiter
	slots   slots
}

// NewLocal creates an in-process gate
func NewLocal(perSecond int) *LocalGate {
	if perSecond < 1 {
		perSecond = 1
	}
	return &LocalGate{
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		slots:   newSlots(perSecond),
	}
}

// Acquire blocks for a slot then a token
func (g *LocalGate) Acquire(ctx context.Context) (func(), error) {
	if err := g.slots.take(ctx); err != nil {
		return nil, err
	}
	release := g.slots.releaser()
	if err := g.limiter.Wait(ctx); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// RedisGate shares the per-second budget across processes through the Redis
// sliding window; the in-flight bound stays per process.
type RedisGate struct {
	limiter *redis.RateLimiter
	budget  redis.RateLimitConfig
	slots   slots
}

// NewRedis creates a distributed gate
func NewRedis(limiter *redis.RateLimiter, perSecond int) *RedisGate {
	return &RedisGate{
		limiter: limiter,
		budget:  redis.MarketDataRateLimit(perSecond),
		slots:   newSlots(perSecond),
	}
}

// Acquire blocks for a local slot then the shared window
func (g *RedisGate) Acquire(ctx context.Context) (func(), error) {
	if err := g.slots.take(ctx); err != nil {
		return nil, err
	}
	release := g.slots.releaser()
	if err := g.limiter.Wait(ctx, g.budget); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// instrumented records gate wait time
type instrumented struct {
	gate    Gate
	metrics *metrics.Metrics
}

// Instrument wraps g so wait time lands in the gate histogram
func Instrument(g Gate, m *metrics.Metrics) Gate {
	if m == nil {
		return g
	}
	return instrumented{gate: g, metrics: m}
}

func (i instrumented) Acquire(ctx context.Context) (func(), error) {
	start := time.Now()
	release, err := i.gate.Acquire(ctx)
	i.metrics.GateWait(time.Since(start))
	return release, err
}

// New picks the gate backend from config. RATE_LIMIT_BACKEND=redis needs an
// enabled client; otherwise the local gate is used.
func New(cfg config.AcquisitionConfig, rc *redis.Client, log *logger.Logger) Gate {
	if cfg.RateLimitBackend == "redis" {
		if rc != nil && rc.Enabled() {
			return NewRedis(redis.NewRateLimiter(rc, "optacq"), cfg.RateLimitPerSecond)
		}
		if log != nil {
			log.Warn("redis rate limit backend requested without redis; using local gate")
		}
	}
	return NewLocal(cfg.RateLimitPerSecond)
}
