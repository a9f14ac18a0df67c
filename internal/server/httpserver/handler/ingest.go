// Package handler provides HTTP request handlers for LockScope.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// handleWait handles POST /ingest/v1/wait.
//
// The wait is registered even when it will later fall below the
// reporting threshold; holder bookkeeping needs every event.
func (h *Handler) handleWait(w http.ResponseWriter, r *http.Request) {
	var req WaitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, r, domain.ErrBadRequest.WithDetails("malformed JSON body"))
		return
	}

	ev := domain.NewContentionEvent(
		req.LockAddress,
		domain.ParseSyncKind(req.Kind),
		req.ClassName,
		req.ThreadID,
		req.ThreadName,
		req.WaitStartNanos,
	)
	if err := ev.Validate(); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.recorder.BeginWait(ev)
	h.writeJSON(w, r, http.StatusAccepted, IngestResponse{Accepted: true})
}

// handleWake handles POST /ingest/v1/wake.
func (h *Handler) handleWake(w http.ResponseWriter, r *http.Request) {
	var req WakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, r, domain.ErrBadRequest.WithDetails("malformed JSON body"))
		return
	}

	if req.LockAddress == 0 {
		h.handleError(w, r, domain.ErrMissingArgument.WithDetails("lock_address is required"))
		return
	}
	if req.WakeNanos <= 0 {
		h.handleError(w, r, domain.ErrInvalidArgument.WithDetails("wake_nanos must be positive"))
		return
	}

	h.recorder.Wake(req.LockAddress, req.ThreadID, req.ThreadName, req.WakeNanos)
	h.writeJSON(w, r, http.StatusAccepted, IngestResponse{Accepted: true})
}
