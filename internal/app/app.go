// Package app builds the acquisition engine and its collaborators from
// configuration. Every entrypoint (CLI, API server, scheduler) starts here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/optacq/internal/acquisition"
	"github.com/wonny/optacq/internal/audit"
	"github.com/wonny/optacq/internal/chaincache"
	"github.com/wonny/optacq/internal/engine"
	"github.com/wonny/optacq/internal/external/marketdata"
	"github.com/wonny/optacq/internal/fetch"
	"github.com/wonny/optacq/internal/invariant"
	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/internal/ratelimit"
	"github.com/wonny/optacq/internal/selection"
	"github.com/wonny/optacq/internal/strategyconfig"
	"github.com/wonny/optacq/internal/timeframe"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/database"
	"github.com/wonny/optacq/pkg/logger"
	"github.com/wonny/optacq/pkg/redis"
)

// App holds the wired components
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Cache    chaincache.Store
	Catalog  *strategyconfig.Catalog
	Snapshot *strategyconfig.CatalogSnapshot
	Engine   *engine.Engine
	Audit    *audit.Repository // nil when DATABASE_URL is empty

	db    *database.DB
	redis *redis.Client
}

// Options overrides pieces of the default wiring
type Options struct {
	Provider fetch.Provider // defaults to the REST market-data client
	NoSink   bool           // skip PostgreSQL even when configured
}

// New wires everything. The database and Redis are optional: an empty
// DATABASE_URL disables the sink and REDIS_ENABLED=false keeps the local gate.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: log, Metrics: metrics.New()}

	cat, data, err := strategyconfig.Load(cfg.StrategyCatalog)
	if err != nil {
		return nil, fmt.Errorf("load strategy catalog: %w", err)
	}
	for _, w := range strategyconfig.Warn(cat) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	snap, err := strategyconfig.NewSnapshot(cat, data)
	if err != nil {
		return nil, fmt.Errorf("snapshot strategy catalog: %w", err)
	}
	resolver, err := strategyconfig.NewResolver(cat)
	if err != nil {
		return nil, fmt.Errorf("build strategy resolver: %w", err)
	}
	a.Catalog, a.Snapshot = cat, snap

	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	var sink engine.Sink
	if !opts.NoSink {
		a.db, err = database.New(ctx, cfg.Database)
		switch {
		case errors.Is(err, database.ErrNotConfigured):
			log.Debug("DATABASE_URL not set; result sink disabled")
		case err != nil:
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		default:
			a.Audit = audit.NewRepository(a.db.Pool)
			if err := a.Audit.EnsureSchema(ctx); err != nil {
				a.Close()
				return nil, err
			}
			sink = a.Audit
		}
	}

	provider := opts.Provider
	if provider == nil {
		provider = marketdata.NewClient(cfg.MarketData, log)
	}

	a.Cache = chaincache.New(cfg.Cache, log, a.Metrics)
	gate := ratelimit.Instrument(ratelimit.New(cfg.Acquisition, a.redis, log), a.Metrics)
	client := fetch.NewClient(provider, gate, cfg.Acquisition, log, a.Metrics)
	sched := acquisition.NewScheduler(client, a.Cache, selection.NewSelector(cat.Policy()), resolver, cfg.Acquisition, log, a.Metrics)

	a.Engine = engine.New(
		timeframe.NewAssigner(cat.TimeframeTable()),
		sched,
		invariant.NewEnforcer(log),
		sink,
		engine.Provenance{CatalogID: snap.CatalogID, CatalogHash: snap.CatalogHash},
		log,
		a.Metrics,
	)

	log.WithFields(map[string]interface{}{
		"catalog_id":   snap.CatalogID,
		"catalog_hash": snap.CatalogHash,
		"strategies":   resolver.Len(),
		"cache":        cfg.Cache.Enabled,
		"rate_backend": cfg.Acquisition.RateLimitBackend,
		"sink":         sink != nil,
	}).Info("Engine initialized")

	return a, nil
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("failed to close redis")
		}
	}
}
