package localserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/lockscope-go/internal/core/domain"
	"github.com/yndnr/lockscope-go/internal/core/recorder"
	"github.com/yndnr/lockscope-go/internal/core/stats"
)

func contextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecorder(t *testing.T) (*recorder.Recorder, *stats.Aggregator) {
	t.Helper()
	agg := stats.NewAggregator()
	rec := recorder.New(
		recorder.Config{MinDuration: domain.DefaultMinDuration},
		recorder.WithObserver(agg),
		recorder.WithLogger(discardLogger()),
	)
	return rec, agg
}

func startTestServer(t *testing.T, h *Handler) string {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "agent.sock")
	srv := New(sock, h, discardLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	t.Cleanup(func() {
		ctx, cancel := contextWithTimeout(t)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
		if err := <-errCh; err != nil {
			t.Errorf("ListenAndServe: %v", err)
		}
	})

	waitForSocket(t, sock)
	return sock
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s never came up", path)
}

func sendCommand(t *testing.T, sock, line string) commandResult {
	t.Helper()
	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var res commandResult
	dec := json.NewDecoder(bufio.NewReader(conn))
	if err := dec.Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res
}

func TestStatusCommand(t *testing.T) {
	rec, agg := newTestRecorder(t)
	ev := domain.NewContentionEvent(0xBEEF, domain.SyncKindMonitor, "java.lang.Object", 7, "worker-7", 1_000)
	rec.BeginWait(ev)

	sock := startTestServer(t, NewHandler(rec, agg))
	res := sendCommand(t, sock, "status")
	if !res.OK {
		t.Fatalf("status failed: %s", res.Error)
	}

	raw, _ := json.Marshal(res.Data)
	var data statusData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal status data: %v", err)
	}
	if data.PendingWaits != 1 {
		t.Errorf("PendingWaits = %d, want 1", data.PendingWaits)
	}
	if data.MinDurationNanos != int64(domain.DefaultMinDuration) {
		t.Errorf("MinDurationNanos = %d, want %d", data.MinDurationNanos, int64(domain.DefaultMinDuration))
	}
	if data.Version == "" {
		t.Error("Version is empty")
	}
}

func TestResetCommand(t *testing.T) {
	rec, agg := newTestRecorder(t)
	ev := domain.NewContentionEvent(0xBEEF, domain.SyncKindMonitor, "java.lang.Object", 7, "worker-7", 1_000)
	rec.BeginWait(ev)

	sock := startTestServer(t, NewHandler(rec, agg))
	res := sendCommand(t, sock, "reset")
	if !res.OK {
		t.Fatalf("reset failed: %s", res.Error)
	}
	if rec.PendingWaits() != 0 {
		t.Errorf("PendingWaits after reset = %d, want 0", rec.PendingWaits())
	}
}

func TestMinDurationCommand(t *testing.T) {
	rec, agg := newTestRecorder(t)
	sock := startTestServer(t, NewHandler(rec, agg))

	res := sendCommand(t, sock, "min-duration 25ms")
	if !res.OK {
		t.Fatalf("min-duration failed: %s", res.Error)
	}
	if got := rec.MinDuration(); got != 25*time.Millisecond {
		t.Errorf("MinDuration = %v, want 25ms", got)
	}

	res = sendCommand(t, sock, "min-duration")
	if !res.OK || res.Data != "25ms" {
		t.Errorf("min-duration query = %+v, want Data 25ms", res)
	}

	res = sendCommand(t, sock, "min-duration banana")
	if res.OK {
		t.Error("invalid duration accepted")
	}
}

func TestReloadCommand(t *testing.T) {
	rec, agg := newTestRecorder(t)
	h := NewHandler(rec, agg)

	sock := startTestServer(t, h)
	res := sendCommand(t, sock, "reload")
	if res.OK {
		t.Error("reload without callback should fail")
	}

	called := false
	h.OnReload(func() error {
		called = true
		return nil
	})
	res = sendCommand(t, sock, "reload")
	if !res.OK {
		t.Fatalf("reload failed: %s", res.Error)
	}
	if !called {
		t.Error("reload callback not invoked")
	}
}

func TestUnknownCommand(t *testing.T) {
	rec, agg := newTestRecorder(t)
	sock := startTestServer(t, NewHandler(rec, agg))

	res := sendCommand(t, sock, "frobnicate now")
	if res.OK {
		t.Error("unknown command reported ok")
	}
	if res.Error == "" {
		t.Error("unknown command has no error message")
	}
}

func TestStaleSocketIsRemoved(t *testing.T) {
	rec, agg := newTestRecorder(t)
	sock := filepath.Join(t.TempDir(), "agent.sock")

	// Leave a dead socket file behind.
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	l.Close()

	srv := New(sock, NewHandler(rec, agg), discardLogger())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	waitForSocket(t, sock)

	ctx, cancel := contextWithTimeout(t)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("ListenAndServe: %v", err)
	}
}
