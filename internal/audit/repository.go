// Package audit persists verified acquisition runs to PostgreSQL for the
// downstream scoring stage.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/optacq/internal/engine"
)

// Repository handles run persistence
// ⭐ SSOT: 실행 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS optacq;

	CREATE TABLE IF NOT EXISTS optacq.acquisition_runs (
		run_id        UUID PRIMARY KEY,
		as_of         TIMESTAMPTZ NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ NOT NULL,
		duration_sec  DOUBLE PRECISION NOT NULL,
		catalog_id    TEXT NOT NULL DEFAULT '',
		catalog_hash  TEXT NOT NULL DEFAULT '',
		total         INTEGER NOT NULL,
		usable        INTEGER NOT NULL,
		report        JSONB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS optacq.acquisition_results (
		run_id              UUID NOT NULL REFERENCES optacq.acquisition_runs(run_id) ON DELETE CASCADE,
		request_identity    INTEGER NOT NULL,
		ticker              TEXT NOT NULL,
		strategy_name       TEXT NOT NULL,
		strategy_type       TEXT NOT NULL,
		timeframe_label     TEXT NOT NULL,
		status              TEXT NOT NULL,
		fetch_status        TEXT NOT NULL,
		primary_expiration  DATE,
		cache_hit           BOOLEAN NOT NULL,
		processing_time_sec DOUBLE PRECISION NOT NULL,
		result              JSONB NOT NULL,
		PRIMARY KEY (run_id, request_identity)
	);

	CREATE INDEX IF NOT EXISTS idx_acquisition_results_ticker
		ON optacq.acquisition_results (ticker, status);
`

// EnsureSchema creates the optacq schema and tables if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveRun implements engine.Sink. The run and all of its rows are written
// in one transaction; a retried run_id replaces its previous rows.
func (r *Repository) SaveRun(ctx context.Context, run *engine.Run) error {
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	usable := 0
	if run.Report != nil {
		usable = run.Report.Usable
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO optacq.acquisition_runs (
			run_id, as_of, started_at, finished_at, duration_sec,
			catalog_id, catalog_hash, total, usable, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			duration_sec = EXCLUDED.duration_sec,
			total = EXCLUDED.total,
			usable = EXCLUDED.usable,
			report = EXCLUDED.report
	`, run.ID, run.AsOf, run.StartedAt, run.FinishedAt, run.DurationSec,
		run.CatalogID, run.CatalogHash, len(run.Results), usable, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM optacq.acquisition_results WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("failed to clear previous results: %w", err)
	}

	batch := &pgx.Batch{}
	for _, res := range run.Results {
		resultJSON, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal result %d: %w", res.RequestIdentity, err)
		}
		var primary *time.Time
		if exp := res.PrimaryExpiration(); !exp.IsZero() {
			primary = &exp
		}
		batch.Queue(`
			INSERT INTO optacq.acquisition_results (
				run_id, request_identity, ticker, strategy_name, strategy_type,
				timeframe_label, status, fetch_status, primary_expiration,
				cache_hit, processing_time_sec, result
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, run.ID, res.RequestIdentity, res.Request.NormalizedTicker(), res.Request.StrategyName,
			string(res.Request.StrategyType), res.Timeframe.Label, string(res.Status),
			string(res.FetchStatus), primary, res.CacheHit, res.ProcessingTimeSec, resultJSON,
		)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunSummary is one row of optacq.acquisition_runs
type RunSummary struct {
	ID          uuid.UUID `json:"run_id"`
	AsOf        time.Time `json:"as_of"`
	DurationSec float64   `json:"duration_sec"`
	CatalogHash string    `json:"catalog_hash"`
	Total       int       `json:"total"`
	Usable      int       `json:"usable"`
}

// RecentRuns returns the latest runs, newest first
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT run_id, as_of, duration_sec, catalog_hash, total, usable
		FROM optacq.acquisition_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.AsOf, &s.DurationSec, &s.CatalogHash, &s.Total, &s.Usable); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// ErrRunNotFound is returned by GetResults for an unknown run id
var ErrRunNotFound = errors.New("run not found")

// GetResults loads the rows of one run ordered by request identity
func (r *Repository) GetResults(ctx context.Context, runID uuid.UUID) ([]json.RawMessage, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM optacq.acquisition_runs WHERE run_id = $1)`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check run: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT result FROM optacq.acquisition_results
		WHERE run_id = $1
		ORDER BY request_identity
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, raw)
	}
	return results, rows.Err()
}

var _ engine.Sink = (*Repository)(nil)
