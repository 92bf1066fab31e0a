// Package chaincache is the disk store of raw option chain snapshots.
// Only observed market data is stored here, never selections or scores.
package chaincache

import (
	"strings"
	"time"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/logger"
)

// Store is the cache contract used by the scheduler.
// Reads never fail: anything unusable is a miss.
type Store interface {
	Get(key contracts.ChainKey) (contracts.CachedChainEntry, bool)
	Put(key contracts.ChainKey, entry contracts.CachedChainEntry) error
	GetExpirations(ticker string, asOf time.Time) (contracts.ExpirationListing, bool)
	PutExpirations(listing contracts.ExpirationListing) error
	Clear(ticker string) error
	ClearAll() error
	Purge() (int, error)
	Stats() (Stats, error)
}

// Stats summarises what is on disk
type Stats struct {
	Enabled  bool   `json:"enabled"`
	Dir      string `json:"dir,omitempty"`
	Tickers  int    `json:"tickers"`
	Chains   int    `json:"chains"`
	Listings int    `json:"listings"`
	Expired  int    `json:"expired"`
	Bytes    int64  `json:"bytes"`
	TTLHours int    `json:"ttl_hours"`
}

// New returns a FileStore, or a no-op store when caching is disabled
func New(cfg config.CacheConfig, log *logger.Logger, m *metrics.Metrics) Store {
	if !cfg.Enabled {
		return Disabled{}
	}
	return NewFileStore(cfg.Dir, cfg.TTL, log, m)
}

// NormalizeKey upper-cases the ticker and truncates both dates
func NormalizeKey(key contracts.ChainKey) contracts.ChainKey {
	return contracts.ChainKey{
		Ticker:     normalizeTicker(key.Ticker),
		Expiration: contracts.DateOnly(key.Expiration),
		AsOf:       contracts.DateOnly(key.AsOf),
	}
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// Disabled always misses and never writes
type Disabled struct{}

func (Disabled) Get(contracts.ChainKey) (contracts.CachedChainEntry, bool) {
	return contracts.CachedChainEntry{}, false
}
func (Disabled) Put(contracts.ChainKey, contracts.CachedChainEntry) error { return nil }
func (Disabled) GetExpirations(string, time.Time) (contracts.ExpirationListing, bool) {
	return contracts.ExpirationListing{}, false
}
func (Disabled) PutExpirations(contracts.ExpirationListing) error { return nil }
func (Disabled) Clear(string) error                               { return nil }
func (Disabled) ClearAll() error                                  { return nil }
func (Disabled) Purge() (int, error)                              { return 0, nil }
func (Disabled) Stats() (Stats, error)                            { return Stats{}, nil }
