package journal

import (
	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// Sink adapts a Writer to the record-sink contract used by the
// contention recorder.
type Sink struct {
	w *Writer
}

// NewSink opens a journal writer for the given configuration.
func NewSink(cfg Config) (*Sink, error) {
	w, err := NewWriter(cfg)
	if err != nil {
		return nil, err
	}
	return &Sink{w: w}, nil
}

// Record appends the event to the journal.
func (s *Sink) Record(ev *domain.ContentionEvent) error {
	return s.w.Append(NewRecord(ev))
}

// Flush forces buffered frames to disk.
func (s *Sink) Flush() error {
	return s.w.Flush()
}

// Close finalizes the current segment.
func (s *Sink) Close() error {
	return s.w.Close()
}
