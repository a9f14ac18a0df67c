package domain

import (
	"errors"
	"fmt"
)

// Error is a coded agent error. Codes follow the LS-<AREA>-<NNNN>
// convention and surface in API envelopes and the X-Error-Code header.
//
// @req RQ-0104
// @design DS-0104
type Error struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on code, so sentinel comparisons survive WithDetails and
// WithCause copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithDetails copies the error with request-specific detail text.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithCause copies the error wrapping an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// Code returns the code carried by err, or "" when err is not a coded
// error anywhere in its chain.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return Code(err) == code
}

func coded(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Event errors. Anomalies in the wait/wake stream are coded so the
// ingest API can answer with a precise status.
var (
	// ErrEventValidation indicates an event from instrumentation failed
	// structural validation.
	ErrEventValidation = coded("LS-EVT-4000", "event validation failed")

	// ErrOrphanWake indicates a wake arrived with no matching pending wait.
	// Protocol anomaly, never fatal; the wake is discarded.
	ErrOrphanWake = coded("LS-EVT-4040", "wake without matching wait")

	// ErrDuplicateWait indicates a thread was recorded as already waiting
	// on the same lock. The duplicate is discarded.
	ErrDuplicateWait = coded("LS-EVT-4090", "thread already waiting on lock")
)

// Sink errors.
var (
	// ErrSinkClosed indicates a record was offered to a closed sink.
	ErrSinkClosed = coded("LS-SINK-5030", "sink closed")

	// ErrSinkWrite indicates a sink failed to persist a record.
	ErrSinkWrite = coded("LS-SINK-5001", "sink write failed")
)

// Request and system errors.
var (
	// ErrInternal indicates an internal agent error.
	ErrInternal = coded("LS-SYS-5000", "internal error")

	// ErrBadRequest indicates a malformed ingest or admin request.
	ErrBadRequest = coded("LS-SYS-4000", "bad request")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = coded("LS-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = coded("LS-ARG-1002", "missing required argument")
)
