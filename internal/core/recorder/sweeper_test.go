// Package recorder implements the lock-contention tracking engine.
package recorder

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSweeperEvictsOnTick(t *testing.T) {
	r := newTestRecorder(&captureSink{})

	// Holder entry recorded at t=1ns.
	r.BeginWait(waitEvent(0x10, 1, 1))
	r.Wake(0x10, 1, "t", 2)

	// Fake clock far past staleAfter.
	var now atomic.Int64
	now.Store((31 * time.Second).Nanoseconds())

	s := NewSweeper(r, 5*time.Millisecond, WithClock(now.Load))
	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for r.HeldCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never evicted stale entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweeperStopJoins(t *testing.T) {
	r := newTestRecorder(&captureSink{})
	s := NewSweeper(r, time.Millisecond)
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not join the sweep loop")
	}

	// No sweeps after Stop: a stale entry added now must survive.
	r.BeginWait(waitEvent(0x20, 1, 1))
	r.Wake(0x20, 1, "t", 2)
	time.Sleep(20 * time.Millisecond)
	if r.HeldCount() != 1 {
		t.Error("sweeper still active after Stop")
	}
}

func TestSweeperStopBeforeStart(t *testing.T) {
	r := newTestRecorder(&captureSink{})
	s := NewSweeper(r, time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop before Start deadlocked")
	}
}
