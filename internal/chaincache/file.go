package chaincache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/pkg/logger"
)

const (
	kindChain       = "chain"
	kindExpirations = "expirations"
	listingDir      = "_expirations"
	tmpPrefix       = ".tmp-"
	staleTmpAge     = time.Hour
)

// FileStore keeps one JSON file per key:
//
//	<dir>/<TICKER>/<expiration>/<as_of>.json
//	<dir>/<TICKER>/_expirations/<as_of>.json
//
// Writes go to a temp file in the target directory and are renamed into
// place, so concurrent readers see either the old or the new record.
// TTL is measured from FetchedAt.
type FileStore struct {
	dir     string
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string, ttl time.Duration, log *logger.Logger, m *metrics.Metrics) *FileStore {
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{
		dir:     dir,
		ttl:     ttl,
		now:     time.Now,
		log:     log.WithField("component", "chaincache"),
		metrics: m,
	}
}

// WithClock replaces the clock used for TTL checks
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	s.now = now
	return s
}

// Dir returns the cache root
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) chainPath(k contracts.ChainKey) string {
	return filepath.Join(s.dir, safeSegment(k.Ticker), k.Expiration.Format(contracts.DateLayout), k.AsOf.Format(contracts.DateLayout)+".json")
}

func (s *FileStore) listingPath(ticker string, asOf time.Time) string {
	return filepath.Join(s.dir, safeSegment(ticker), listingDir, contracts.DateOnly(asOf).Format(contracts.DateLayout)+".json")
}

// Get returns the entry for key unless it is missing, expired or corrupt
func (s *FileStore) Get(key contracts.ChainKey) (contracts.CachedChainEntry, bool) {
	key = NormalizeKey(key)
	path := s.chainPath(key)

	var entry contracts.CachedChainEntry
	if !s.read(kindChain, path, &entry) {
		return contracts.CachedChainEntry{}, false
	}
	if NormalizeKey(entry.Key) != key {
		s.corrupt(kindChain, path, fmt.Errorf("record key %s does not match %s", entry.Key, key))
		return contracts.CachedChainEntry{}, false
	}
	if s.expired(entry.FetchedAt) {
		s.metrics.CacheLookup(kindChain, "expired")
		s.log.WithField("key", key.String()).Debug("cache entry expired")
		return contracts.CachedChainEntry{}, false
	}

	s.metrics.CacheLookup(kindChain, "hit")
	return entry, true
}

// Put stores entry under key. The record's key is overwritten with the
// normalized key; a zero FetchedAt is stamped with the current time.
func (s *FileStore) Put(key contracts.ChainKey, entry contracts.CachedChainEntry) error {
	entry.Key = NormalizeKey(key)
	if entry.Key.Ticker == "" {
		return errors.New("chaincache: empty ticker")
	}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = s.now().UTC()
	}
	return s.write(s.chainPath(entry.Key), entry)
}

// GetExpirations returns the cached expiration listing for (ticker, asOf)
func (s *FileStore) GetExpirations(ticker string, asOf time.Time) (contracts.ExpirationListing, bool) {
	ticker = normalizeTicker(ticker)
	path := s.listingPath(ticker, asOf)

	var listing contracts.ExpirationListing
	if !s.read(kindExpirations, path, &listing) {
		return contracts.ExpirationListing{}, false
	}
	if listing.Ticker != ticker || !contracts.DateOnly(listing.AsOf).Equal(contracts.DateOnly(asOf)) {
		s.corrupt(kindExpirations, path, fmt.Errorf("listing %s/%s does not match", listing.Ticker, listing.AsOf.Format(contracts.DateLayout)))
		return contracts.ExpirationListing{}, false
	}
	if s.expired(listing.FetchedAt) {
		s.metrics.CacheLookup(kindExpirations, "expired")
		return contracts.ExpirationListing{}, false
	}

	s.metrics.CacheLookup(kindExpirations, "hit")
	return listing, true
}

// PutExpirations stores a listing
func (s *FileStore) PutExpirations(listing contracts.ExpirationListing) error {
	listing.Ticker = normalizeTicker(listing.Ticker)
	if listing.Ticker == "" {
		return errors.New("chaincache: empty ticker")
	}
	listing.AsOf = contracts.DateOnly(listing.AsOf)
	if listing.FetchedAt.IsZero() {
		listing.FetchedAt = s.now().UTC()
	}
	return s.write(s.listingPath(listing.Ticker, listing.AsOf), listing)
}

// Clear removes every record of one ticker
func (s *FileStore) Clear(ticker string) error {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		return errors.New("chaincache: empty ticker")
	}
	if err := os.RemoveAll(filepath.Join(s.dir, safeSegment(ticker))); err != nil {
		return fmt.Errorf("clear %s: %w", ticker, err)
	}
	s.log.WithField("ticker", ticker).Info("cache cleared")
	return nil
}

// ClearAll removes every record, keeping the root directory
func (s *FileStore) ClearAll() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("clear all: %w", err)
		}
	}
	s.log.Info("cache cleared (all tickers)")
	return nil
}

// stamp is the part of a record Purge and Stats need
type stamp struct {
	FetchedAt time.Time `json:"fetched_at"`
}

// Purge deletes expired and corrupt records plus abandoned temp files.
// Lookups already ignore them; this only reclaims disk.
func (s *FileStore) Purge() (int, error) {
	removed := 0
	err := s.walk(func(path string, info fs.FileInfo) {
		if strings.HasPrefix(info.Name(), tmpPrefix) {
			if s.now().Sub(info.ModTime()) > staleTmpAge && os.Remove(path) == nil {
				removed++
			}
			return
		}
		if st, ok := readStamp(path); ok && !s.expired(st.FetchedAt) {
			return
		}
		if os.Remove(path) == nil {
			removed++
		}
	})
	if err != nil {
		return removed, err
	}

	s.log.WithField("removed", removed).Info("cache purge complete")
	return removed, nil
}

// Stats walks the store
func (s *FileStore) Stats() (Stats, error) {
	st := Stats{Enabled: true, Dir: s.dir, TTLHours: int(s.ttl / time.Hour)}
	tickers := make(map[string]struct{})

	err := s.walk(func(path string, info fs.FileInfo) {
		if strings.HasPrefix(info.Name(), tmpPrefix) {
			return
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return
		}
		tickers[parts[0]] = struct{}{}
		if parts[1] == listingDir {
			st.Listings++
		} else {
			st.Chains++
		}
		st.Bytes += info.Size()
		if stm, ok := readStamp(path); !ok || s.expired(stm.FetchedAt) {
			st.Expired++
		}
	})
	st.Tickers = len(tickers)
	return st, err
}

func (s *FileStore) walk(visit func(path string, info fs.FileInfo)) error {
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		visit(path, info)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) expired(fetchedAt time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(fetchedAt) > s.ttl
}

// read decodes path into v. Missing files are plain misses; anything else
// unusable is logged as corrupt.
func (s *FileStore) read(kind, path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.corrupt(kind, path, err)
			return false
		}
		s.metrics.CacheLookup(kind, "miss")
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.corrupt(kind, path, err)
		return false
	}
	return true
}

func (s *FileStore) corrupt(kind, path string, err error) {
	s.metrics.CacheLookup(kind, "corrupt")
	s.log.WithError(err).WithField("path", path).Warn("unreadable cache record treated as miss")
}

// write is temp file + rename within the target directory
func (s *FileStore) write(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache record: %w", err)
	}
	return nil
}

func readStamp(path string) (stamp, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stamp{}, false
	}
	var st stamp
	if err := json.Unmarshal(data, &st); err != nil || st.FetchedAt.IsZero() {
		return stamp{}, false
	}
	return st, true
}

// safeSegment keeps a ticker usable as one path element (BRK/B → BRK_B)
func safeSegment(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '^':
			return r
		}
		return '_'
	}, s)
	if out == "." || out == ".." {
		return "_"
	}
	return out
}
