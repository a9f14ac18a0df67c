// Package handler provides HTTP request handlers for LockScope.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// defaultListLimit bounds list endpoints when no limit is given.
const defaultListLimit = 20

// handleAdminStatus handles GET /admin/v1/status.
func (h *Handler) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		HeldLocks:      h.recorder.HeldCount(),
		PendingWaits:   h.recorder.PendingWaits(),
		ContendedLocks: h.recorder.ContendedLocks(),
		TrackedLocks:   h.stats.TrackedLocks(),
		MinDuration:    h.recorder.MinDuration(),
		UptimeSeconds:  int64(time.Since(h.started).Seconds()),
	}

	if h.records != nil {
		if count, err := h.records.Count(); err == nil {
			resp.StoredRecords = count
		}
	}

	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleReset handles POST /admin/v1/reset. It clears both recorder
// registries and the aggregate statistics.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.recorder.Reset()
	h.stats.Reset()
	h.logger.Info("recorder state reset", "request_id", r.Header.Get("X-Request-ID"))
	h.writeJSON(w, r, http.StatusOK, ResetResponse{Reset: true})
}

// handleLocks handles GET /admin/v1/locks?top=N.
func (h *Handler) handleLocks(w http.ResponseWriter, r *http.Request) {
	n := defaultListLimit
	if raw := r.URL.Query().Get("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.handleError(w, r, domain.ErrInvalidArgument.WithDetails("top must be a positive integer"))
			return
		}
		n = parsed
	}

	top := h.stats.Top(n)
	items := make([]LockStatsResponse, 0, len(top))
	for _, ls := range top {
		items = append(items, LockStatsResponse{
			LockAddress:   ls.LockAddress,
			ClassName:     ls.ClassName,
			Kind:          ls.Kind,
			WaitCount:     int64(ls.WaitCount),
			TotalWaitNano: ls.TotalWaitNano,
			MaxWaitNanos:  ls.MaxWaitNanos,
			LastWakeNanos: ls.LastWakeNanos,
		})
	}

	h.writeJSON(w, r, http.StatusOK, ListLocksResponse{
		Items: items,
		Total: h.stats.TrackedLocks(),
	})
}

// handleRecords handles GET /admin/v1/records?limit=N. Only available
// when the store sink is configured.
func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		h.writeError(w, r, http.StatusNotFound, "LS-SINK-4040", "record store is not configured", nil)
		return
	}

	n := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.handleError(w, r, domain.ErrInvalidArgument.WithDetails("limit must be a positive integer"))
			return
		}
		n = parsed
	}

	recs, err := h.records.Recent(n)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]StoredRecordResponse, 0, len(recs))
	for _, rec := range recs {
		ev := rec.Event
		items = append(items, StoredRecordResponse{
			ID:             rec.ID,
			WrittenAt:      rec.WrittenAt,
			LockAddress:    ev.LockAddress,
			Kind:           ev.Kind.String(),
			ClassName:      ev.ClassName,
			ThreadID:       ev.ThreadID,
			ThreadName:     ev.ThreadName,
			HolderThreadID: ev.HolderThreadID,
			WaitNanos:      ev.WaitDurationNanos,
		})
	}

	total := len(items)
	if count, err := h.records.Count(); err == nil {
		total = count
	}

	h.writeJSON(w, r, http.StatusOK, ListRecordsResponse{
		Items: items,
		Total: total,
	})
}
