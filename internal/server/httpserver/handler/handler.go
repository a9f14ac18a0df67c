// Package handler serves the agent's ingest and admin HTTP API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/lockscope-go/internal/core/domain"
	"github.com/yndnr/lockscope-go/internal/core/recorder"
	"github.com/yndnr/lockscope-go/internal/core/stats"
	"github.com/yndnr/lockscope-go/internal/sink/store"
)

// RecordStore is the subset of the record store the handler queries.
// Nil when the store sink is not configured.
type RecordStore interface {
	Recent(n int) ([]*store.StoredRecord, error)
	Count() (int, error)
}

// Handler routes ingest and admin requests to the recorder and its
// read-side views.
type Handler struct {
	recorder *recorder.Recorder
	stats    *stats.Aggregator
	records  RecordStore
	logger   *slog.Logger
	started  time.Time
	mux      *http.ServeMux
}

// New creates a new Handler. records may be nil when the store sink is
// disabled.
func New(rec *recorder.Recorder, agg *stats.Aggregator, records RecordStore, logger *slog.Logger) *Handler {
	h := &Handler{
		recorder: rec,
		stats:    agg,
		records:  records,
		logger:   logger,
		started:  time.Now(),
		mux:      http.NewServeMux(),
	}

	// Health probes stay outside auth and rate limiting; the
	// middleware chain exempts them by path.
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("POST /ingest/v1/wait", h.handleWait)
	h.mux.HandleFunc("POST /ingest/v1/wake", h.handleWake)

	h.mux.HandleFunc("GET /admin/v1/status", h.handleAdminStatus)
	h.mux.HandleFunc("POST /admin/v1/reset", h.handleReset)
	h.mux.HandleFunc("GET /admin/v1/locks", h.handleLocks)
	h.mux.HandleFunc("GET /admin/v1/records", h.handleRecords)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// writeJSON wraps data in the standard response envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	reqID := r.Header.Get("X-Request-ID")
	envelope(w, reqID, status, NewResponse(reqID, data))
}

// writeError wraps a coded error in the standard response envelope and
// mirrors the code in X-Error-Code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	reqID := r.Header.Get("X-Request-ID")
	w.Header().Set("X-Error-Code", code)
	envelope(w, reqID, status, NewErrorResponse(reqID, code, message, details))
}

func envelope(w http.ResponseWriter, reqID string, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", reqID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// handleError converts coded errors to HTTP responses. Errors without
// a code are logged and masked as LS-SYS-5000.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.Code(err)
	if code == "" {
		h.logger.Error("internal error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "LS-SYS-5000", "internal server error", nil)
		return
	}
	h.writeError(w, r, statusForCode(code), code, err.Error(), nil)
}

// statusForCode maps the LS-<AREA>-<NNNN> convention onto HTTP status
// codes: the 4-digit tail encodes the class, argument errors are
// always client errors.
func statusForCode(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasPrefix(code, "LS-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
