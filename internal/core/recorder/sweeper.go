// Package recorder implements the lock-contention tracking engine.
package recorder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/lockscope-go/internal/core/domain"
)

// Sweeper periodically evicts stale held-lock registry entries.
//
// Exactly one Sweeper runs per Recorder, on its own goroutine. Stop
// signals the goroutine and joins it; once Stop returns, no further
// sweeps happen.
//
// @design DS-0102
type Sweeper struct {
	recorder *Recorder
	interval time.Duration
	logger   *slog.Logger

	// nowNanos is the timestamp source for sweep ticks; tests
	// substitute a fake clock.
	nowNanos func() int64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the diagnostic logger.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = l
	}
}

// WithClock sets the timestamp source used at each tick.
func WithClock(nowNanos func() int64) SweeperOption {
	return func(s *Sweeper) {
		s.nowNanos = nowNanos
	}
}

// NewSweeper creates a sweeper for the given recorder.
func NewSweeper(r *Recorder, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = domain.DefaultSweepInterval
	}

	s := &Sweeper{
		recorder: r,
		interval: interval,
		nowNanos: func() int64 { return time.Now().UnixNano() },
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Start launches the sweep loop. Calling Start more than once is a
// no-op.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop signals the sweep loop and joins it. Safe to call multiple
// times and before Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.startOnce.Do(func() {
		// Never started; nothing to join.
		close(s.doneCh)
	})
	<-s.doneCh
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	s.logger.Info("expiry sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			s.recorder.SweepOnce(s.nowNanos())
			s.recorder.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		case <-s.stopCh:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}
