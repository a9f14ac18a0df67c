package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func waitDone(t *testing.T, h *Handler) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestTriggerRunsHooksInReverseOrder(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	// Registration mirrors agent startup: servers last, so they
	// stop first.
	h.OnShutdown(record("sink"))
	h.OnShutdown(record("sweeper"))
	h.OnShutdown(record("httpserver"))

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	h.Trigger()
	waitDone(t, h)

	if err := <-errCh; err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
	want := []string{"httpserver", "sweeper", "sink"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("ran %d hooks, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("hook %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestTriggerIsIdempotent(t *testing.T) {
	h := NewHandler(time.Second)

	var mu sync.Mutex
	calls := 0
	h.OnShutdown(func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	go h.Wait()
	h.Trigger()
	h.Trigger()
	h.Trigger()
	waitDone(t, h)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
}

func TestSignalStartsShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	var mu sync.Mutex
	ran := false
	h.OnShutdown(func(context.Context) error {
		mu.Lock()
		ran = true
		mu.Unlock()
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	// Give Wait a moment to install its signal handler.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("sending SIGTERM: %v", err)
	}
	waitDone(t, h)

	if err := <-errCh; err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Error("hook did not run after signal")
	}
}

func TestLastHookErrorWins(t *testing.T) {
	h := NewHandler(time.Second)

	errJournal := errors.New("journal: close failed")
	errServer := errors.New("httpserver: close failed")

	h.OnShutdown(func(context.Context) error { return errJournal })
	h.OnShutdown(func(context.Context) error { return errServer })
	h.OnShutdown(func(context.Context) error { return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()
	waitDone(t, h)

	// Hooks run in reverse, so errJournal is the last failure seen.
	if err := <-errCh; !errors.Is(err, errJournal) {
		t.Errorf("Wait() = %v, want %v", err, errJournal)
	}
}

func TestHooksGetDeadlineContext(t *testing.T) {
	h := NewHandler(30 * time.Second)

	var mu sync.Mutex
	var hasDeadline bool
	h.OnShutdown(func(ctx context.Context) error {
		mu.Lock()
		_, hasDeadline = ctx.Deadline()
		mu.Unlock()
		return nil
	})

	go h.Wait()
	h.Trigger()
	waitDone(t, h)

	mu.Lock()
	defer mu.Unlock()
	if !hasDeadline {
		t.Error("hook context has no deadline")
	}
}

func TestConcurrentRegistration(t *testing.T) {
	h := NewHandler(time.Second)

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(context.Context) error {
				mu.Lock()
				ran++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	go h.Wait()
	h.Trigger()
	waitDone(t, h)

	mu.Lock()
	defer mu.Unlock()
	if ran != 20 {
		t.Errorf("ran %d hooks, want 20", ran)
	}
}
