// Package invariant asserts the one-row-per-request contract of a run and
// audits how multi-strategy tickers came out. It never removes rows.
package invariant

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/pkg/logger"
)

var (
	// ErrRowCountMismatch means the output has fewer or more rows than the input
	ErrRowCountMismatch = errors.New("row count mismatch")

	// ErrIdentityViolation means a request identity is duplicated, missing or out of range
	ErrIdentityViolation = errors.New("request identity violation")
)

// Report is the diagnostic summary of one verified run
type Report struct {
	Total              int                                 `json:"total"`
	StatusCounts       map[contracts.AcquisitionStatus]int `json:"status_counts"`
	Usable             int                                 `json:"usable"`
	Tickers            int                                 `json:"tickers"`
	MultiStrategy      int                                 `json:"multi_strategy_tickers"`
	MultiSuccess       int                                 `json:"multi_success_tickers"`
	MultiSuccessRatio  float64                             `json:"multi_success_ratio"`
	DiverseExpirations int                                 `json:"diverse_expiration_tickers"`
	CacheHits          int                                 `json:"cache_hits"`
}

// Enforcer verifies runs
type Enforcer struct {
	logger *logger.Logger
}

// NewEnforcer creates an enforcer
func NewEnforcer(log *logger.Logger) *Enforcer {
	if log == nil {
		log = logger.Nop()
	}
	return &Enforcer{logger: log.WithField("module", "invariant")}
}

// Verify fails hard when results do not map one-to-one onto inputCount
// requests, then logs the status distribution of the run.
func (e *Enforcer) Verify(inputCount int, results []contracts.AcquisitionResult) (*Report, error) {
	if len(results) != inputCount {
		e.logger.WithFields(map[string]interface{}{
			"input":  inputCount,
			"output": len(results),
		}).Error("row count mismatch")
		return nil, fmt.Errorf("%w: %d requests, %d results", ErrRowCountMismatch, inputCount, len(results))
	}

	seen := make([]bool, inputCount)
	for _, r := range results {
		id := r.RequestIdentity
		if id < 0 || id >= inputCount {
			return nil, fmt.Errorf("%w: identity %d outside [0,%d)", ErrIdentityViolation, id, inputCount)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: identity %d appears twice", ErrIdentityViolation, id)
		}
		seen[id] = true
	}

	report := Summarize(results)
	e.log(report)
	return report, nil
}

type tickerStats struct {
	requests    int
	successes   int
	expirations map[time.Time]struct{}
}

// Summarize builds the report without checking identities
func Summarize(results []contracts.AcquisitionResult) *Report {
	report := &Report{
		Total:        len(results),
		StatusCounts: make(map[contracts.AcquisitionStatus]int),
	}

	byTicker := make(map[string]*tickerStats)
	for _, r := range results {
		report.StatusCounts[r.Status]++
		if r.CacheHit {
			report.CacheHits++
		}

		ticker := r.Request.NormalizedTicker()
		ts, ok := byTicker[ticker]
		if !ok {
			ts = &tickerStats{expirations: make(map[time.Time]struct{})}
			byTicker[ticker] = ts
		}
		ts.requests++
		if r.Status.IsUsable() {
			report.Usable++
			ts.successes++
			ts.expirations[r.PrimaryExpiration()] = struct{}{}
		}
	}

	report.Tickers = len(byTicker)
	for _, ts := range byTicker {
		if ts.requests > 1 {
			report.MultiStrategy++
		}
		if ts.successes > 1 {
			report.MultiSuccess++
		}
		if len(ts.expirations) > 1 {
			report.DiverseExpirations++
		}
	}
	if report.MultiStrategy > 0 {
		report.MultiSuccessRatio = float64(report.MultiSuccess) / float64(report.MultiStrategy)
	}
	return report
}

// SortedStatuses returns the statuses present in the report, by count then name
func (r *Report) SortedStatuses() []contracts.AcquisitionStatus {
	statuses := make([]contracts.AcquisitionStatus, 0, len(r.StatusCounts))
	for s := range r.StatusCounts {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool {
		ci, cj := r.StatusCounts[statuses[i]], r.StatusCounts[statuses[j]]
		if ci != cj {
			return ci > cj
		}
		return statuses[i] < statuses[j]
	})
	return statuses
}

func (e *Enforcer) log(r *Report) {
	fields := map[string]interface{}{
		"total":               r.Total,
		"usable":              r.Usable,
		"tickers":             r.Tickers,
		"multi_strategy":      r.MultiStrategy,
		"multi_success":       r.MultiSuccess,
		"multi_success_ratio": r.MultiSuccessRatio,
		"diverse_expirations": r.DiverseExpirations,
		"cache_hits":          r.CacheHits,
	}
	for _, s := range r.SortedStatuses() {
		fields["status_"+string(s)] = r.StatusCounts[s]
	}

	entry := e.logger.WithFields(fields)
	if r.Total > 0 && r.Usable == 0 {
		// 사용 가능한 계약 0건: 상태 분포와 함께 경고
		entry.Warn("Acquisition produced no usable contracts")
		return
	}
	entry.Info("Acquisition verified")
}
