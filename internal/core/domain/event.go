package domain

import "time"

// NoHolder is the holder thread id recorded when no contending holder
// could be resolved, or when the recorded holder is the waiter itself.
const NoHolder int32 = -1

// Default engine thresholds (based on RQ-0102 and DS-0102).
const (
	// DefaultMinDuration is the minimum wait duration worth recording.
	// Shorter waits are considered scheduling noise.
	DefaultMinDuration = 11 * time.Millisecond

	// DefaultStaleAfter is the age after which an uncontended holder
	// entry may be evicted from the held-lock registry.
	DefaultStaleAfter = 30 * time.Second

	// DefaultSweepInterval is how often the expiry sweeper runs.
	DefaultSweepInterval = 10 * time.Second
)

// SyncKind classifies the synchronizer primitive a thread waited on.
//
// @design DS-0101
type SyncKind uint8

const (
	// SyncKindUnknown is an unclassified synchronizer.
	SyncKindUnknown SyncKind = iota

	// SyncKindMonitor is an object monitor wait (synchronized block).
	SyncKindMonitor

	// SyncKindPark is an explicit park on a j.u.c synchronizer.
	SyncKindPark

	// SyncKindSleep is a timed sleep; tracked but never attributed.
	SyncKindSleep
)

// String returns the wire name of the synchronizer kind.
func (k SyncKind) String() string {
	switch k {
	case SyncKindMonitor:
		return "monitor"
	case SyncKindPark:
		return "park"
	case SyncKindSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// ParseSyncKind parses a wire name into a SyncKind.
func ParseSyncKind(s string) SyncKind {
	switch s {
	case "monitor":
		return SyncKindMonitor
	case "park":
		return SyncKindPark
	case "sleep":
		return SyncKindSleep
	default:
		return SyncKindUnknown
	}
}

// Concurrent lock class names eligible for holder attribution when the
// wait arrived through a park. Other park targets (semaphores, latches,
// queues) are still tracked as waits but never attributed to a holder.
const (
	classReentrantLock   = "Ljava/util/concurrent/locks/ReentrantLock"
	classReentrantRWLock = "Ljava/util/concurrent/locks/ReentrantReadWriteLock"
)

// IsConcurrentLock reports whether a synchronizer class name names an
// explicit lock whose holder is worth resolving.
//
// @req RQ-0103
func IsConcurrentLock(className string) bool {
	return className == classReentrantLock || className == classReentrantRWLock
}

// ContentionEvent describes one wait/wake pairing on a lock address.
//
// The event is created at wait-begin, owned by the waiter registry
// while pending, and transferred to the held-lock registry once the
// wake is paired. WakeNanos and WaitDurationNanos stay zero until
// the pairing completes.
//
// @req RQ-0101
// @design DS-0101
type ContentionEvent struct {
	// LockAddress is an opaque handle identifying the lock object.
	// It is only ever used as a map key, never dereferenced.
	LockAddress uint64 `json:"lock_address"`

	// Kind classifies the synchronizer primitive.
	Kind SyncKind `json:"kind"`

	// ClassName is the synchronizer class name as reported by the
	// runtime (JVM internal form, e.g. "Ljava/lang/Object").
	ClassName string `json:"class_name"`

	// ThreadID is the native id of the waiting thread.
	ThreadID int32 `json:"thread_id"`

	// ThreadName is the runtime name of the waiting thread.
	ThreadName string `json:"thread_name"`

	// HolderThreadID is the native id of the thread that held the
	// lock when the wait began, or NoHolder.
	HolderThreadID int32 `json:"holder_thread_id"`

	// WaitStartNanos is the wait-begin timestamp in nanoseconds.
	WaitStartNanos int64 `json:"wait_start_nanos"`

	// WakeNanos is the wake timestamp in nanoseconds; zero while
	// the wait is still pending.
	WakeNanos int64 `json:"wake_nanos,omitempty"`

	// WaitDurationNanos is WakeNanos - WaitStartNanos once paired.
	WaitDurationNanos int64 `json:"wait_duration_nanos,omitempty"`
}

// NewContentionEvent creates a pending event for a wait that just began.
// Holder attribution starts out empty; the recorder fills it in.
func NewContentionEvent(lockAddress uint64, kind SyncKind, className string, threadID int32, threadName string, waitStartNanos int64) *ContentionEvent {
	return &ContentionEvent{
		LockAddress:    lockAddress,
		Kind:           kind,
		ClassName:      className,
		ThreadID:       threadID,
		ThreadName:     threadName,
		HolderThreadID: NoHolder,
		WaitStartNanos: waitStartNanos,
	}
}

// AttributionWorthy reports whether holder resolution applies to this
// event. Monitor waits always qualify; park waits qualify only for
// explicit concurrent lock classes.
func (e *ContentionEvent) AttributionWorthy() bool {
	if e.Kind == SyncKindPark {
		return IsConcurrentLock(e.ClassName)
	}
	return e.Kind != SyncKindSleep
}

// Complete pairs the event with its wake timestamp and derives the
// wait duration.
func (e *ContentionEvent) Complete(wakeNanos int64) {
	e.WakeNanos = wakeNanos
	e.WaitDurationNanos = wakeNanos - e.WaitStartNanos
}

// Pending reports whether the event is still waiting for its wake.
func (e *ContentionEvent) Pending() bool {
	return e.WakeNanos == 0
}

// WaitDuration returns the derived wait duration.
func (e *ContentionEvent) WaitDuration() time.Duration {
	return time.Duration(e.WaitDurationNanos)
}

// Clone returns a copy that the caller may own independently.
func (e *ContentionEvent) Clone() *ContentionEvent {
	clone := *e
	return &clone
}

// Validate checks structural validity of an event arriving from
// instrumentation.
func (e *ContentionEvent) Validate() error {
	if e.LockAddress == 0 {
		return ErrEventValidation.WithDetails("lock_address is required")
	}
	if e.ThreadID < 0 {
		return ErrEventValidation.WithDetails("thread_id must be non-negative")
	}
	if e.WaitStartNanos <= 0 {
		return ErrEventValidation.WithDetails("wait_start_nanos must be positive")
	}
	return nil
}
