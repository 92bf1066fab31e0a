// Package engine runs one acquisition batch end to end: timeframe
// assignment, parallel acquisition, invariant checks and result handoff.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/optacq/internal/acquisition"
	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/invariant"
	"github.com/wonny/optacq/internal/metrics"
	"github.com/wonny/optacq/internal/timeframe"
	"github.com/wonny/optacq/pkg/logger"
)

// ErrSink wraps a failed result handoff. The run itself is complete.
var ErrSink = errors.New("result sink failed")

// Sink receives every verified run
type Sink interface {
	SaveRun(ctx context.Context, run *Run) error
}

// Run is one verified acquisition batch
type Run struct {
	ID          uuid.UUID                     `json:"run_id"`
	AsOf        time.Time                     `json:"as_of"`
	StartedAt   time.Time                     `json:"started_at"`
	FinishedAt  time.Time                     `json:"finished_at"`
	DurationSec float64                       `json:"duration_sec"`
	CatalogID   string                        `json:"catalog_id,omitempty"`
	CatalogHash string                        `json:"catalog_hash,omitempty"`
	Results     []contracts.AcquisitionResult `json:"results"`
	Report      *invariant.Report             `json:"report"`
}

// Provenance identifies the strategy catalog a run was produced with
type Provenance struct {
	CatalogID   string
	CatalogHash string
}

// Engine wires the pipeline stages
// ⭐ SSOT: 배치 실행 순서 (assign → acquire → verify → sink)는 여기서만
type Engine struct {
	assigner   *timeframe.Assigner
	scheduler  *acquisition.Scheduler
	enforcer   *invariant.Enforcer
	sink       Sink
	provenance Provenance
	now        func() time.Time
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// New creates an engine. sink may be nil.
func New(
	assigner *timeframe.Assigner,
	scheduler *acquisition.Scheduler,
	enforcer *invariant.Enforcer,
	sink Sink,
	provenance Provenance,
	log *logger.Logger,
	m *metrics.Metrics,
) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		assigner:   assigner,
		scheduler:  scheduler,
		enforcer:   enforcer,
		sink:       sink,
		provenance: provenance,
		now:        time.Now,
		logger:     log.WithField("module", "engine"),
		metrics:    m,
	}
}

// WithClock replaces the clock used for the run's as-of instant (tests)
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Preview returns the windows requests would be assigned, without fetching
func (e *Engine) Preview(requests []contracts.StrategyTimeframeRequest) []contracts.TimeframeWindow {
	return e.assigner.AssignAll(requests)
}

// Timeframes returns the effective per-type base windows
func (e *Engine) Timeframes() timeframe.Table {
	return e.assigner.Table()
}

// Run acquires contracts for requests. Invariant violations return a nil run.
// A sink failure returns the complete run together with an ErrSink error.
func (e *Engine) Run(ctx context.Context, requests []contracts.StrategyTimeframeRequest) (*Run, error) {
	started := e.now()
	run := &Run{
		ID:          uuid.New(),
		AsOf:        started,
		StartedAt:   started,
		CatalogID:   e.provenance.CatalogID,
		CatalogHash: e.provenance.CatalogHash,
	}
	log := e.logger.WithField("run_id", run.ID.String())

	windows := e.assigner.AssignAll(requests)

	results, err := e.scheduler.Acquire(ctx, requests, windows, run.AsOf)
	if err != nil {
		log.WithError(err).Error("acquisition failed")
		return nil, fmt.Errorf("acquire: %w", err)
	}

	report, err := e.enforcer.Verify(len(requests), results)
	if err != nil {
		log.WithError(err).Error("invariant violated")
		return nil, fmt.Errorf("verify: %w", err)
	}

	run.Results = results
	run.Report = report
	run.FinishedAt = e.now()
	elapsed := run.FinishedAt.Sub(run.StartedAt)
	run.DurationSec = elapsed.Seconds()
	e.metrics.Run(elapsed)

	log.WithFields(map[string]interface{}{
		"requests":     len(requests),
		"usable":       report.Usable,
		"duration_sec": run.DurationSec,
	}).Info("Run completed")

	if e.sink != nil {
		if err := e.sink.SaveRun(ctx, run); err != nil {
			log.WithError(err).Error("result handoff failed")
			return run, fmt.Errorf("%w: %v", ErrSink, err)
		}
	}
	return run, nil
}
