// Package sink delivers completed contention records to their
// configured destinations.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// Sink receives completed contention events.
//
// Record may be called from the hot wake path and must not block for
// long; slow destinations should buffer internally.
type Sink interface {
	Record(ev *domain.ContentionEvent) error
	Close() error
}

// LogSink writes each contention record as a structured log line.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// LogSinkOption configures a LogSink.
type LogSinkOption func(*LogSink)

// WithLogLevel sets the level contention records are logged at.
func WithLogLevel(level slog.Level) LogSinkOption {
	return func(s *LogSink) {
		s.level = level
	}
}

// NewLogSink creates a sink that logs records via the given logger.
func NewLogSink(logger *slog.Logger, opts ...LogSinkOption) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &LogSink{
		logger: logger,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record logs one contention record.
func (s *LogSink) Record(ev *domain.ContentionEvent) error {
	s.logger.Log(context.Background(), s.level, "lock contention",
		"lock_address", ev.LockAddress,
		"kind", ev.Kind.String(),
		"class_name", ev.ClassName,
		"thread_id", ev.ThreadID,
		"thread_name", ev.ThreadName,
		"holder_thread_id", ev.HolderThreadID,
		"wait_nanos", ev.WaitDurationNanos,
	)
	return nil
}

// Close implements Sink. A LogSink holds no resources.
func (s *LogSink) Close() error {
	return nil
}

// MultiSink fans each record out to every child sink.
//
// All children see every record even when some of them fail; the
// per-child errors are joined.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink over the given children.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Record delivers the event to every child sink.
func (s *MultiSink) Record(ev *domain.ContentionEvent) error {
	var errs []error
	for _, child := range s.sinks {
		if err := child.Record(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every child sink.
func (s *MultiSink) Close() error {
	var errs []error
	for _, child := range s.sinks {
		if err := child.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
