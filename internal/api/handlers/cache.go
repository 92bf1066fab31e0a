package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/optacq/internal/chaincache"
	"github.com/wonny/optacq/pkg/logger"
)

// CacheHandler exposes chain cache maintenance
type CacheHandler struct {
	store  chaincache.Store
	logger *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(store chaincache.Store, log *logger.Logger) *CacheHandler {
	return &CacheHandler{store: store, logger: log}
}

// Stats returns what is on disk
// GET /api/cache/stats
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read cache stats")
		respondError(w, http.StatusInternalServerError, "Failed to read cache stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ClearTicker removes every record of one ticker
// DELETE /api/cache/{ticker}
func (h *CacheHandler) ClearTicker(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "Ticker is required")
		return
	}
	if err := h.store.Clear(ticker); err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to clear cache")
		respondError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared", "ticker": ticker})
}

// ClearAll empties the cache
// DELETE /api/cache
func (h *CacheHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(); err != nil {
		h.logger.WithError(err).Error("Failed to clear cache")
		respondError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Purge removes expired and corrupt records
// POST /api/cache/purge
func (h *CacheHandler) Purge(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.Purge()
	if err != nil {
		h.logger.WithError(err).Error("Failed to purge cache")
		respondError(w, http.StatusInternalServerError, "Failed to purge cache")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "purged", "removed": removed})
}
