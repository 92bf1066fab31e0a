package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optacq/internal/chaincache"
	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/logger"
)

type stubProvider struct{}

func (stubProvider) Expirations(context.Context, string) ([]time.Time, error) {
	return nil, nil
}

func (stubProvider) Chain(context.Context, string, time.Time) (contracts.ChainSnapshot, error) {
	return contracts.ChainSnapshot{}, nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:         "test",
		Acquisition: config.DefaultAcquisition(),
		Cache:       config.CacheConfig{Enabled: true, Dir: t.TempDir(), TTL: time.Hour},
	}
}

func TestNew_WithoutDatabaseOrRedis(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.Nop(), Options{Provider: stubProvider{}})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Audit)
	assert.Equal(t, "us_equity_options", a.Snapshot.CatalogID)
	assert.IsType(t, &chaincache.FileStore{}, a.Cache)

	// an empty listing is insufficient data, reported per row
	run, err := a.Engine.Run(context.Background(), []contracts.StrategyTimeframeRequest{
		{Ticker: "AAPL", StrategyName: "LongCall", StrategyType: contracts.StrategyDirectional},
	})
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, contracts.StatusInsufficientData, run.Results[0].Status)
}

func TestNew_BadCatalogPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.StrategyCatalog = "/nonexistent/catalog.yaml"
	_, err := New(context.Background(), cfg, logger.Nop(), Options{Provider: stubProvider{}})
	assert.Error(t, err)
}
