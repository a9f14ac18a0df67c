package journal

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// Errors for journal operations.
var (
	ErrCorruptedFrame   = errors.New("journal: corrupted frame")
	ErrChecksumMismatch = errors.New("journal: checksum mismatch")
	ErrInvalidFrameType = errors.New("journal: invalid frame type")
)

// FrameType identifies the kind of frame stored in a segment.
type FrameType uint8

const (
	FrameTypeUnspecified FrameType = iota

	// FrameTypeClassDef maps a class-name hash to the full name.
	FrameTypeClassDef

	// FrameTypeRecord carries one completed contention record.
	FrameTypeRecord
)

// Record is one completed contention event as persisted in the journal.
type Record struct {
	// ID is a ULID assigned at write time; it sorts by wall clock.
	ID string

	// WrittenAt is the write timestamp in Unix milliseconds.
	WrittenAt int64

	Event *domain.ContentionEvent
}

// NewRecord wraps a completed event for persistence.
func NewRecord(ev *domain.ContentionEvent) *Record {
	return &Record{
		ID:        ulid.Make().String(),
		WrittenAt: time.Now().UnixMilli(),
		Event:     ev,
	}
}

// classDef is a dictionary frame pairing a class-name hash with the
// name it abbreviates.
type classDef struct {
	Hash uint64 `json:"h"`
	Name string `json:"n"`
}
