// Package recorder implements the lock-contention tracking engine.
package recorder

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/lockscope-go/internal/core/domain"
	"github.com/yndnr/lockscope-go/internal/telemetry/metric"
)

// Sink receives completed contention records that passed the
// duration filter. Implementations live in internal/sink.
type Sink interface {
	Record(ev *domain.ContentionEvent) error
}

// Observer receives every paired event, filtered or not. Used for
// aggregate statistics that must see short waits too.
type Observer interface {
	Observe(ev *domain.ContentionEvent)
}

// Config holds the engine thresholds.
type Config struct {
	// MinDuration is the minimum wait duration forwarded to the sink.
	MinDuration time.Duration

	// StaleAfter is the age after which an uncontended held-lock
	// entry becomes eligible for eviction.
	StaleAfter time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MinDuration: domain.DefaultMinDuration,
		StaleAfter:  domain.DefaultStaleAfter,
	}
}

// Recorder tracks in-flight waits and last-known lock holders.
//
// All exported methods are safe for concurrent use by arbitrary
// instrumentation threads plus one sweeper goroutine.
//
// @req RQ-0102
// @design DS-0102
type Recorder struct {
	staleAfter time.Duration

	// minDurationNanos is atomic so the config watcher can adjust
	// the filter threshold without pausing ingest.
	minDurationNanos atomic.Int64

	sink     Sink
	observer Observer
	logger   *slog.Logger
	metrics  *metric.Registry

	// warnLimit throttles orphan-wake and duplicate-wait warnings;
	// an upstream ordering bug must not flood the log.
	warnLimit *rate.Limiter

	mu sync.Mutex
	// heldLocks maps lock address to the most recent event describing
	// the last thread known to have held that lock. At most one entry
	// per address; a replacement releases the previous event.
	heldLocks map[uint64]*domain.ContentionEvent
	// waiters maps lock address to the currently-waiting threads and
	// their pending events. The inner map is dropped once empty.
	waiters map[uint64]map[int32]*domain.ContentionEvent
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithSink sets the sink for completed, filtered records.
func WithSink(s Sink) Option {
	return func(r *Recorder) {
		r.sink = s
	}
}

// WithObserver sets the observer for all paired events.
func WithObserver(o Observer) Option {
	return func(r *Recorder) {
		r.observer = o
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = l
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// New creates a new Recorder.
func New(cfg Config, opts ...Option) *Recorder {
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = domain.DefaultMinDuration
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = domain.DefaultStaleAfter
	}

	r := &Recorder{
		staleAfter: cfg.StaleAfter,
		warnLimit:  rate.NewLimiter(rate.Every(time.Second), 10),
		heldLocks:  make(map[uint64]*domain.ContentionEvent),
		waiters:    make(map[uint64]map[int32]*domain.ContentionEvent),
	}
	r.minDurationNanos.Store(cfg.MinDuration.Nanoseconds())

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.metrics == nil {
		r.metrics = metric.NewRegistry()
	}

	return r
}

// MinDuration returns the current duration filter threshold.
func (r *Recorder) MinDuration() time.Duration {
	return time.Duration(r.minDurationNanos.Load())
}

// SetMinDuration adjusts the duration filter threshold at runtime.
// Non-positive values are ignored.
func (r *Recorder) SetMinDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	r.minDurationNanos.Store(d.Nanoseconds())
}

// ResolveHolder returns the native id of the thread last known to
// have held lockAddress, or domain.NoHolder when the registry has no
// entry or the recorded holder is the waiter itself (a thread cannot
// contend with itself).
//
// The result is an attribution hint: by the time the caller uses it,
// the holder may already have changed.
func (r *Recorder) ResolveHolder(lockAddress uint64, waitingThreadID int32) int32 {
	holder := domain.NoHolder

	r.mu.Lock()
	if ev, ok := r.heldLocks[lockAddress]; ok && ev.ThreadID != waitingThreadID {
		holder = ev.ThreadID
	}
	r.mu.Unlock()

	return holder
}

// BeginWait registers a pending wait. Holder attribution happens in
// its own critical section before the insert; the waiter registry
// takes ownership of ev on success. A second concurrent wait by the
// same thread on the same lock is discarded as a no-op: the protocol
// guarantees it cannot happen, so seeing one means an upstream
// ordering anomaly that must not corrupt state.
func (r *Recorder) BeginWait(ev *domain.ContentionEvent) {
	if ev.AttributionWorthy() {
		ev.HolderThreadID = r.ResolveHolder(ev.LockAddress, ev.ThreadID)
	}

	r.mu.Lock()
	threads, ok := r.waiters[ev.LockAddress]
	if !ok {
		threads = make(map[int32]*domain.ContentionEvent)
		r.waiters[ev.LockAddress] = threads
	}
	if _, dup := threads[ev.ThreadID]; dup {
		r.mu.Unlock()

		r.metrics.DuplicateWaits.Inc()
		if r.warnLimit.Allow() {
			r.logger.Warn("discarding duplicate wait",
				"lock_address", ev.LockAddress,
				"thread_id", ev.ThreadID,
				"thread_name", ev.ThreadName)
		}
		return
	}
	threads[ev.ThreadID] = ev
	r.mu.Unlock()

	r.metrics.WaitsStarted.Inc()
	r.metrics.PendingWaiters.Inc()
}

// Wake pairs a pending wait with its wake event. On a match the
// event is completed, ownership moves to the held-lock registry
// (replacing and releasing any previous holder entry for the same
// address), and the record is forwarded to the sink if it passes the
// duration filter. A wake with no pending wait is an orphan and is
// discarded with a throttled diagnostic.
func (r *Recorder) Wake(lockAddress uint64, threadID int32, threadName string, wakeNanos int64) {
	r.mu.Lock()
	threads, ok := r.waiters[lockAddress]
	if !ok {
		r.mu.Unlock()
		r.discardOrphanWake(lockAddress, threadID, threadName, "no waiters for lock")
		return
	}
	ev, ok := threads[threadID]
	if !ok {
		r.mu.Unlock()
		r.discardOrphanWake(lockAddress, threadID, threadName, "thread not waiting")
		return
	}

	delete(threads, threadID)
	if len(threads) == 0 {
		delete(r.waiters, lockAddress)
	}

	ev.Complete(wakeNanos)

	// The woken thread is now the last known holder of this lock.
	_, replaced := r.heldLocks[lockAddress]
	r.heldLocks[lockAddress] = ev
	heldCount := len(r.heldLocks)
	r.mu.Unlock()

	r.metrics.WakesMatched.Inc()
	r.metrics.PendingWaiters.Dec()
	if !replaced {
		r.metrics.HeldLocks.Set(float64(heldCount))
	}

	// Filtering affects only what leaves the engine; the held-lock
	// registry was already updated above.
	record := ev.Clone()
	if r.observer != nil {
		r.observer.Observe(record)
	}
	if record.WaitDurationNanos < r.minDurationNanos.Load() {
		r.metrics.RecordsFiltered.Inc()
		return
	}
	r.metrics.RecordsForwarded.Inc()
	if r.sink == nil {
		return
	}
	if err := r.sink.Record(record); err != nil {
		r.metrics.SinkErrors.Inc()
		r.logger.Error("sink rejected contention record",
			"lock_address", lockAddress,
			"thread_id", threadID,
			"error", err)
	}
}

// SweepOnce walks the held-lock registry and evicts entries older
// than StaleAfter, skipping any address that still has a pending
// waiter: an entry in use for resolution must never disappear out
// from under a concurrent ResolveHolder call. Returns the number of
// evicted entries.
func (r *Recorder) SweepOnce(nowNanos int64) int {
	staleNanos := r.staleAfter.Nanoseconds()

	r.mu.Lock()
	evicted := 0
	for addr, ev := range r.heldLocks {
		if _, contended := r.waiters[addr]; contended {
			continue
		}
		if nowNanos-ev.WaitStartNanos > staleNanos {
			delete(r.heldLocks, addr)
			evicted++
		}
	}
	heldCount := len(r.heldLocks)
	r.mu.Unlock()

	if evicted > 0 {
		r.metrics.SweepEvictions.Add(float64(evicted))
		r.metrics.HeldLocks.Set(float64(heldCount))
		r.logger.Debug("swept stale held-lock entries",
			"evicted", evicted,
			"remaining", heldCount)
	}
	return evicted
}

// Reset destroys every event in both registries and empties them.
// Used at agent shutdown or profiling-session restart.
func (r *Recorder) Reset() {
	r.mu.Lock()
	held := len(r.heldLocks)
	pending := 0
	for _, threads := range r.waiters {
		pending += len(threads)
	}
	r.heldLocks = make(map[uint64]*domain.ContentionEvent)
	r.waiters = make(map[uint64]map[int32]*domain.ContentionEvent)
	r.mu.Unlock()

	r.metrics.HeldLocks.Set(0)
	r.metrics.PendingWaiters.Set(0)
	r.logger.Info("recorder reset",
		"released_held", held,
		"released_pending", pending)
}

// HeldCount returns the number of held-lock registry entries.
func (r *Recorder) HeldCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.heldLocks)
}

// PendingWaits returns the number of pending wait events across all
// lock addresses.
func (r *Recorder) PendingWaits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, threads := range r.waiters {
		n += len(threads)
	}
	return n
}

// ContendedLocks returns the number of lock addresses with at least
// one pending waiter.
func (r *Recorder) ContendedLocks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

func (r *Recorder) discardOrphanWake(lockAddress uint64, threadID int32, threadName, reason string) {
	r.metrics.OrphanWakes.Inc()
	if r.warnLimit.Allow() {
		r.logger.Warn("discarding orphan wake",
			"lock_address", lockAddress,
			"thread_id", threadID,
			"thread_name", threadName,
			"reason", reason)
	}
}
