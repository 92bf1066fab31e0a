package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/optacq/internal/audit"
	"github.com/wonny/optacq/internal/contracts"
	"github.com/wonny/optacq/internal/engine"
	"github.com/wonny/optacq/internal/timeframe"
	"github.com/wonny/optacq/pkg/logger"
)

// MaxRequestsPerCall bounds one synchronous POST /api/acquisitions
const MaxRequestsPerCall = 5000

// Engine is what the handlers need from engine.Engine
type Engine interface {
	Run(ctx context.Context, requests []contracts.StrategyTimeframeRequest) (*engine.Run, error)
	Preview(requests []contracts.StrategyTimeframeRequest) []contracts.TimeframeWindow
	Timeframes() timeframe.Table
}

// RunStore is the read side of the result sink
type RunStore interface {
	RecentRuns(ctx context.Context, limit int) ([]audit.RunSummary, error)
	GetResults(ctx context.Context, runID uuid.UUID) ([]json.RawMessage, error)
}

// AcquisitionHandler handles acquisition endpoints
// ⭐ SSOT: 수집 API 핸들러는 이 구조체에서만
type AcquisitionHandler struct {
	engine Engine
	runs   RunStore // nil when no database is configured
	logger *logger.Logger
}

// NewAcquisitionHandler creates a new acquisition handler. runs may be nil.
func NewAcquisitionHandler(e Engine, runs RunStore, log *logger.Logger) *AcquisitionHandler {
	return &AcquisitionHandler{engine: e, runs: runs, logger: log}
}

// AcquisitionResponse wraps a run with the handoff outcome
type AcquisitionResponse struct {
	*engine.Run
	SinkError string `json:"sink_error,omitempty"`
}

// Acquire runs one batch synchronously
// POST /api/acquisitions
func (h *AcquisitionHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	requests, err := engine.DecodeRequests(http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(requests) == 0 {
		respondError(w, http.StatusBadRequest, "No requests")
		return
	}
	if len(requests) > MaxRequestsPerCall {
		respondError(w, http.StatusRequestEntityTooLarge, "Too many requests in one call")
		return
	}

	run, err := h.engine.Run(r.Context(), requests)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, AcquisitionResponse{Run: run})
	case errors.Is(err, engine.ErrSink) && run != nil:
		respondJSON(w, http.StatusOK, AcquisitionResponse{Run: run, SinkError: err.Error()})
	default:
		h.logger.WithError(err).Error("Acquisition run failed")
		respondError(w, http.StatusInternalServerError, "Acquisition run failed")
	}
}

// ListRuns returns recent persisted runs
// GET /api/acquisitions?limit=20
func (h *AcquisitionHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "Result store not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (1-500)")
			return
		}
		limit = n
	}

	runs, err := h.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []audit.RunSummary{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// GetRun returns the rows of one persisted run
// GET /api/acquisitions/{id}
func (h *AcquisitionHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "Result store not configured")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	results, err := h.runs.GetResults(r.Context(), id)
	if errors.Is(err, audit.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load run")
		respondError(w, http.StatusInternalServerError, "Failed to load run")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  id,
		"results": results,
	})
}

// TimeframeResponse is one previewed window
type TimeframeResponse struct {
	StrategyType contracts.StrategyType    `json:"strategy_type"`
	Confidence   float64                   `json:"confidence_score"`
	Window       contracts.TimeframeWindow `json:"window"`
}

// Timeframes previews window assignment without fetching.
// GET /api/timeframes                          → base windows per type
// GET /api/timeframes?type=LEAP&confidence=0.9 → assigned window
func (h *AcquisitionHandler) Timeframes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("type") == "" {
		table := h.engine.Timeframes()
		out := make(map[string]timeframe.BaseWindow, len(table.ByType)+1)
		for t, b := range table.ByType {
			out[string(t)] = b
		}
		out[string(contracts.StrategyUnknown)] = table.Default
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"high_confidence_threshold": table.HighConfidence,
			"windows":                   out,
		})
		return
	}

	confidence := 0.0
	if v := q.Get("confidence"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil || c < 0 || c > 1 {
			respondError(w, http.StatusBadRequest, "Invalid 'confidence' (0-1)")
			return
		}
		confidence = c
	}

	req := contracts.StrategyTimeframeRequest{
		Ticker:          "PREVIEW",
		StrategyType:    contracts.ParseStrategyType(q.Get("type")),
		ConfidenceScore: confidence,
	}
	respondJSON(w, http.StatusOK, TimeframeResponse{
		StrategyType: req.StrategyType,
		Confidence:   confidence,
		Window:       h.engine.Preview([]contracts.StrategyTimeframeRequest{req})[0],
	})
}
