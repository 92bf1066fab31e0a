package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/redis"
)

func TestLocalGate_BoundsInFlight(t *testing.T) {
	g := NewLocal(3)

	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int32(3))
	assert.Greater(t, peak, int32(0))
}

func TestLocalGate_RateCeiling(t *testing.T) {
	g := NewLocal(5)
	start := time.Now()
	for i := 0; i < 10; i++ {
		release, err := g.Acquire(context.Background())
		require.NoError(t, err)
		release()
	}
	// 5 burst tokens, then 5 more at 200ms intervals
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestLocalGate_ContextCancelled(t *testing.T) {
	g := NewLocal(1)
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// release is idempotent and frees the slot
	release()
	release()
	release, err = g.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestUnlimited(t *testing.T) {
	release, err := Unlimited{}.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestNew_FallsBackToLocal(t *testing.T) {
	cfg := config.DefaultAcquisition()
	cfg.RateLimitBackend = "redis"

	disabled, err := redis.New(&config.Config{})
	require.NoError(t, err)

	_, ok := New(cfg, disabled, nil).(*LocalGate)
	assert.True(t, ok)

	_, ok = New(config.DefaultAcquisition(), nil, nil).(*LocalGate)
	assert.True(t, ok)
}

func TestInstrument(t *testing.T) {
	assert.Equal(t, Gate(Unlimited{}), Instrument(Unlimited{}, nil))

	m := metrics.New()
	g := Instrument(Unlimited{}, m)
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release()
}
