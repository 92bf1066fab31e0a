// Package acquisition runs the parallel, rate-gated acquisition of option
// contracts for a batch of strategy requests.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/optacq/internal/chaincache"
	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/fetch"
	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/internal/selection"
	"github.com/wonny/optacq/pkg/config"
	"github.com/wonny/optacq/pkg/logger"
)

// ErrMergeViolation means a result slot was filled twice or never.
// It indicates a scheduler defect and is always fatal.
var ErrMergeViolation = errors.New("result merge violation")

// SpecResolver maps a strategy name onto its leg rule
type SpecResolver interface {
	Resolve(name string, t contracts.StrategyType) selection.StrategySpec
}

// Scheduler fans ticker groups out to a bounded worker pool and merges the
// rows back by request identity.
// ⭐ SSOT: 결과 병합은 오케스트레이터 goroutine에서만 (append 금지, identity 슬롯에 기록)
type Scheduler struct {
	fetcher  *fetch.Client
	cache    chaincache.Store
	selector *selection.Selector
	specs    SpecResolver
	cfg      config.AcquisitionConfig
	sleep    fetch.Sleeper
	now      func() time.Time
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewScheduler creates a scheduler
func NewScheduler(
	fetcher *fetch.Client,
	cache chaincache.Store,
	selector *selection.Selector,
	specs SpecResolver,
	cfg config.AcquisitionConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Scheduler {
	if cache == nil {
		cache = chaincache.Disabled{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = config.DefaultChunkSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = config.DefaultWorkerCount
	}
	return &Scheduler{
		fetcher:  fetcher,
		cache:    cache,
		selector: selector,
		specs:    specs,
		cfg:      cfg,
		sleep:    fetch.SleepContext,
		now:      time.Now,
		logger:   log.WithField("module", "acquisition"),
		metrics:  m,
	}
}

// WithSleeper replaces the inter-chunk sleeper (tests)
func (s *Scheduler) WithSleeper(sl fetch.Sleeper) *Scheduler {
	s.sleep = sl
	return s
}

// WithClock replaces the clock used for FetchedAt stamps (tests)
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// item is one request with its window, copied for a worker
type item struct {
	identity int
	request  contracts.StrategyTimeframeRequest
	window   contracts.TimeframeWindow
}

// group is the work unit: every request of one ticker
type group struct {
	ticker string
	items  []item
}

// Acquire processes requests[i] with windows[i] and returns exactly one row
// per request, at index i. Per-request failures are row statuses; an error
// is returned only for mismatched inputs or a merge violation.
func (s *Scheduler) Acquire(ctx context.Context, requests []contracts.StrategyTimeframeRequest, windows []contracts.TimeframeWindow, asOf time.Time) ([]contracts.AcquisitionResult, error) {
	if len(requests) != len(windows) {
		return nil, fmt.Errorf("%d requests but %d windows", len(requests), len(windows))
	}

	session := selection.ResolveSession(s.cfg.SessionOverride, asOf)
	results := make([]contracts.AcquisitionResult, len(requests))
	filled := make([]bool, len(requests))

	groups, invalid := groupByTicker(requests, windows)
	for _, it := range invalid {
		res := s.invalidRow(it, asOf)
		results[it.identity] = res
		filled[it.identity] = true
		s.metrics.Row(string(res.Status), 0)
	}

	chunks := planChunks(groups, s.cfg.ChunkSize)

	s.logger.WithFields(map[string]interface{}{
		"requests": len(requests),
		"tickers":  len(groups),
		"chunks":   len(chunks),
		"workers":  s.cfg.WorkerCount,
		"session":  session,
		"as_of":    asOf.Format(contracts.DateLayout),
	}).Info("Starting acquisition")

	// abort is cancelled on the first AUTH_ERROR. Fetches in flight keep ctx
	// and finish; anything not yet fetched is skipped.
	abort, cancelAbort := context.WithCancel(context.Background())
	defer cancelAbort()

	var violation error
	for i, chunk := range chunks {
		if i > 0 && abort.Err() == nil {
			if err := s.sleep(ctx, s.cfg.ChunkSleep); err != nil {
				s.logger.WithError(err).Warn("inter-chunk pause interrupted")
			}
		}

		for res := range s.runChunk(ctx, abort, cancelAbort, chunk, asOf, session) {
			id := res.RequestIdentity
			if id < 0 || id >= len(results) || filled[id] {
				if violation == nil {
					violation = fmt.Errorf("%w: identity %d delivered twice or out of range", ErrMergeViolation, id)
				}
				continue
			}
			results[id] = res
			filled[id] = true
		}
	}
	if violation != nil {
		return nil, violation
	}
	for id, ok := range filled {
		if !ok {
			return nil, fmt.Errorf("%w: identity %d never delivered", ErrMergeViolation, id)
		}
	}
	return results, nil
}

// runChunk starts min(workers, groups) workers over one chunk and returns the
// channel of their rows, closed once every worker is done
func (s *Scheduler) runChunk(ctx, abort context.Context, cancelAbort context.CancelFunc, chunk []group, asOf time.Time, session selection.Session) <-chan contracts.AcquisitionResult {
	size := 0
	for _, g := range chunk {
		size += len(g.items)
	}
	resultCh := make(chan contracts.AcquisitionResult, size)
	groupCh := make(chan group, len(chunk))

	workers := s.cfg.WorkerCount
	if workers > len(chunk) {
		workers = len(chunk)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w := &worker{s: s, id: workerID, abort: abort, cancelAbort: cancelAbort, asOf: asOf, session: session}
			for g := range groupCh {
				for _, res := range w.processGroup(ctx, g) {
					resultCh <- res
				}
			}
		}(i + 1)
	}

	for _, g := range chunk {
		groupCh <- g
	}
	close(groupCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()
	return resultCh
}

func (s *Scheduler) invalidRow(it item, asOf time.Time) contracts.AcquisitionResult {
	return contracts.AcquisitionResult{
		RequestIdentity: it.identity,
		Request:         it.request,
		Timeframe:       it.window,
		Contracts:       []contracts.SelectedContract{},
		Status:          contracts.StatusInvalidRequest,
		FetchStatus:     contracts.FetchSkipped,
		AsOf:            asOf,
		Error:           it.request.Validate().Error(),
	}
}

// groupByTicker splits valid requests into ticker groups in first-seen order.
// Every item is a deep copy so workers share nothing with the caller.
func groupByTicker(requests []contracts.StrategyTimeframeRequest, windows []contracts.TimeframeWindow) ([]group, []item) {
	var (
		groups  []group
		invalid []item
		index   = make(map[string]int)
	)
	for i, req := range requests {
		it := item{identity: i, request: copyRequest(req), window: windows[i]}
		if req.Validate() != nil {
			invalid = append(invalid, it)
			continue
		}
		ticker := req.NormalizedTicker()
		gi, ok := index[ticker]
		if !ok {
			gi = len(groups)
			index[ticker] = gi
			groups = append(groups, group{ticker: ticker})
		}
		groups[gi].items = append(groups[gi].items, it)
	}
	return groups, invalid
}

func copyRequest(r contracts.StrategyTimeframeRequest) contracts.StrategyTimeframeRequest {
	if r.VolatilityRank != nil {
		v := *r.VolatilityRank
		r.VolatilityRank = &v
	}
	return r
}

// planChunks packs whole groups into chunks of at most size requests.
// A group larger than size is a chunk of its own.
func planChunks(groups []group, size int) [][]group {
	var (
		chunks  [][]group
		current []group
		count   int
	)
	for _, g := range groups {
		if len(current) > 0 && count+len(g.items) > size {
			chunks = append(chunks, current)
			current, count = nil, 0
		}
		current = append(current, g)
		count += len(g.items)
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
