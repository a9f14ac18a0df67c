// Package handler provides HTTP request handlers for LockScope.
package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// WaitRequest is the request body for POST /ingest/v1/wait.
type WaitRequest struct {
	LockAddress    uint64 `json:"lock_address"`
	Kind           string `json:"kind"`
	ClassName      string `json:"class_name,omitempty"`
	ThreadID       int32  `json:"thread_id"`
	ThreadName     string `json:"thread_name,omitempty"`
	WaitStartNanos int64  `json:"wait_start_nanos"`
}

// WakeRequest is the request body for POST /ingest/v1/wake.
type WakeRequest struct {
	LockAddress uint64 `json:"lock_address"`
	ThreadID    int32  `json:"thread_id"`
	ThreadName  string `json:"thread_name,omitempty"`
	WakeNanos   int64  `json:"wake_nanos"`
}

// IngestResponse is the response body for ingest endpoints.
type IngestResponse struct {
	Accepted bool `json:"accepted"`
}

// StatusResponse is the response body for GET /admin/v1/status.
type StatusResponse struct {
	HeldLocks      int           `json:"held_locks"`
	PendingWaits   int           `json:"pending_waits"`
	ContendedLocks int           `json:"contended_locks"`
	TrackedLocks   int           `json:"tracked_locks"`
	StoredRecords  int           `json:"stored_records,omitempty"`
	MinDuration    time.Duration `json:"min_duration_nanos"`
	UptimeSeconds  int64         `json:"uptime_seconds"`
}

// ResetResponse is the response body for POST /admin/v1/reset.
type ResetResponse struct {
	Reset bool `json:"reset"`
}

// LockStatsResponse represents per-lock statistics in API responses.
type LockStatsResponse struct {
	LockAddress   uint64 `json:"lock_address"`
	ClassName     string `json:"class_name,omitempty"`
	Kind          string `json:"kind"`
	WaitCount     int64  `json:"wait_count"`
	TotalWaitNano int64  `json:"total_wait_nanos"`
	MaxWaitNanos  int64  `json:"max_wait_nanos"`
	LastWakeNanos int64  `json:"last_wake_nanos"`
}

// ListLocksResponse is the response body for GET /admin/v1/locks.
type ListLocksResponse struct {
	Items []LockStatsResponse `json:"items"`
	Total int                 `json:"total"`
}

// StoredRecordResponse represents a persisted record in API responses.
type StoredRecordResponse struct {
	ID             string `json:"id"`
	WrittenAt      int64  `json:"written_at"`
	LockAddress    uint64 `json:"lock_address"`
	Kind           string `json:"kind"`
	ClassName      string `json:"class_name,omitempty"`
	ThreadID       int32  `json:"thread_id"`
	ThreadName     string `json:"thread_name,omitempty"`
	HolderThreadID int32  `json:"holder_thread_id"`
	WaitNanos      int64  `json:"wait_nanos"`
}

// ListRecordsResponse is the response body for GET /admin/v1/records.
type ListRecordsResponse struct {
	Items []StoredRecordResponse `json:"items"`
	Total int                    `json:"total"`
}
