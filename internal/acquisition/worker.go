package acquisition

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/fetch"
	"github.com/wonny/optacq/internal/selection"
)

// worker processes ticker groups. Its memo lives for one group only.
type worker struct {
	s           *Scheduler
	id          int
	abort       context.Context
	cancelAbort context.CancelFunc
	asOf        time.Time
	session     selection.Session
}

// memo holds what one group already looked up, failures included, so each
// distinct expiration is fetched at most once per ticker
type memo struct {
	listing     []time.Time
	listingOut  *fetch.Outcome
	chains      map[time.Time]contracts.CachedChainEntry
	chainFailed map[time.Time]fetch.Outcome
}

// lookup tracks the data path of one request
type lookup struct {
	network bool
	status  contracts.FetchStatus
	err     error
}

func (w *worker) processGroup(ctx context.Context, g group) []contracts.AcquisitionResult {
	m := &memo{
		chains:      make(map[time.Time]contracts.CachedChainEntry),
		chainFailed: make(map[time.Time]fetch.Outcome),
	}
	rows := make([]contracts.AcquisitionResult, 0, len(g.items))
	for _, it := range g.items {
		rows = append(rows, w.process(ctx, g.ticker, it, m))
	}
	return rows
}

func (w *worker) process(ctx context.Context, ticker string, it item, m *memo) (res contracts.AcquisitionResult) {
	start := time.Now()
	res = contracts.AcquisitionResult{
		RequestIdentity: it.identity,
		Request:         it.request,
		Timeframe:       it.window,
		Contracts:       []contracts.SelectedContract{},
		WorkerID:        w.id,
		AsOf:            w.asOf,
	}
	defer func() {
		elapsed := time.Since(start)
		res.ProcessingTimeSec = elapsed.Seconds()
		w.s.metrics.Row(string(res.Status), elapsed)
	}()

	var lk lookup
	exps, ok := w.expirations(ctx, ticker, m, &lk)
	if !ok {
		w.fail(&res, lk)
		return res
	}

	asOf := contracts.DateOnly(w.asOf)
	exp, ok := selection.ChooseExpiration(exps, asOf, it.window)
	if !ok {
		res.Status = contracts.StatusNoExpirations
		res.FetchStatus = contracts.FetchOK
		res.CacheHit = !lk.network
		return res
	}

	entry, ok := w.chain(ctx, ticker, exp, m, &lk)
	if !ok {
		w.fail(&res, lk)
		return res
	}

	spec := w.s.specs.Resolve(it.request.StrategyName, it.request.StrategyType)
	sel := w.s.selector.SelectAt([]contracts.CachedChainEntry{entry}, asOf, it.window, spec, w.session)

	res.Status = contracts.StatusFromSelection(sel.Status)
	res.FetchStatus = contracts.FetchOK
	res.CacheHit = !lk.network
	if len(sel.Contracts) > 0 {
		res.Contracts = sel.Contracts
	}
	return res
}

func (w *worker) fail(res *contracts.AcquisitionResult, lk lookup) {
	res.FetchStatus = lk.status
	res.Status = contracts.StatusFromFetch(lk.status)
	res.CacheHit = false
	if lk.err != nil {
		res.Error = lk.err.Error()
	}
}

// expirations resolves the listing from memo, cache, then network
func (w *worker) expirations(ctx context.Context, ticker string, m *memo, lk *lookup) ([]time.Time, bool) {
	if m.listing != nil {
		return m.listing, true
	}
	if m.listingOut != nil {
		lk.status, lk.err = m.listingOut.Status, m.listingOut.Err
		return nil, false
	}

	if listing, ok := w.s.cache.GetExpirations(ticker, w.asOf); ok {
		m.listing = listing.Expirations
		return m.listing, true
	}

	if w.aborted(lk) {
		return nil, false
	}

	lk.network = true
	exps, out, err := w.s.fetcher.FetchExpirations(ctx, ticker)
	if err != nil {
		lk.status, lk.err = contracts.FetchUnknown, err
		return nil, false
	}
	if !out.OK() {
		w.record(out, lk, func(o fetch.Outcome) { m.listingOut = &o })
		w.logFailure("expirations", ticker, "", out)
		return nil, false
	}

	m.listing = exps
	if err := w.s.cache.PutExpirations(contracts.ExpirationListing{
		Ticker:      ticker,
		AsOf:        w.asOf,
		FetchedAt:   w.s.now(),
		Expirations: exps,
	}); err != nil {
		w.s.logger.WithError(err).WithField("ticker", ticker).Warn("failed to cache expirations")
	}
	return exps, true
}

// chain resolves one chain snapshot from memo, cache, then network
func (w *worker) chain(ctx context.Context, ticker string, exp time.Time, m *memo, lk *lookup) (contracts.CachedChainEntry, bool) {
	if e, ok := m.chains[exp]; ok {
		return e, true
	}
	if out, ok := m.chainFailed[exp]; ok {
		lk.status, lk.err = out.Status, out.Err
		return contracts.CachedChainEntry{}, false
	}

	key := contracts.ChainKey{Ticker: ticker, Expiration: contracts.DateOnly(exp), AsOf: contracts.DateOnly(w.asOf)}
	if e, ok := w.s.cache.Get(key); ok {
		m.chains[exp] = e
		return e, true
	}

	if w.aborted(lk) {
		return contracts.CachedChainEntry{}, false
	}

	lk.network = true
	snap, out, err := w.s.fetcher.FetchChain(ctx, ticker, exp)
	if err != nil {
		lk.status, lk.err = contracts.FetchUnknown, err
		return contracts.CachedChainEntry{}, false
	}
	if !out.OK() {
		w.record(out, lk, func(o fetch.Outcome) { m.chainFailed[exp] = o })
		w.logFailure("chain", ticker, exp.Format(contracts.DateLayout), out)
		return contracts.CachedChainEntry{}, false
	}

	entry := contracts.CachedChainEntry{Key: key, FetchedAt: w.s.now(), Snapshot: snap}
	m.chains[exp] = entry
	if err := w.s.cache.Put(key, entry); err != nil {
		w.s.logger.WithError(err).WithField("key", key.String()).Warn("failed to cache chain")
	}
	return entry, true
}

// aborted reports a batch abort and marks the lookup skipped
func (w *worker) aborted(lk *lookup) bool {
	if w.abort.Err() == nil {
		return false
	}
	lk.status = contracts.FetchSkipped
	lk.err = fmt.Errorf("batch aborted after upstream authentication failure")
	return true
}

// record copies a failed outcome into lk. AUTH_ERROR aborts the batch and is
// not memoized, so later requests in the group report the skip.
func (w *worker) record(out fetch.Outcome, lk *lookup, remember func(fetch.Outcome)) {
	lk.status, lk.err = out.Status, out.Err
	if out.Status == contracts.FetchAuthError {
		w.cancelAbort()
		return
	}
	remember(out)
}

func (w *worker) logFailure(op, ticker, exp string, out fetch.Outcome) {
	fields := map[string]interface{}{
		"worker":   w.id,
		"op":       op,
		"ticker":   ticker,
		"status":   out.Status,
		"attempts": out.Attempts,
	}
	if exp != "" {
		fields["expiration"] = exp
	}
	w.s.logger.WithFields(fields).Debug("Fetch failed")
}
