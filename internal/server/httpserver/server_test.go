package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/lockscope-go/internal/core/recorder"
	"github.com/yndnr/lockscope-go/internal/core/stats"
	"github.com/yndnr/lockscope-go/internal/telemetry/metric"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	agg := stats.NewAggregator()
	metrics := metric.NewRegistry()
	rec := recorder.New(
		recorder.Config{MinDuration: 11 * time.Millisecond},
		recorder.WithObserver(agg),
		recorder.WithMetrics(metrics),
		recorder.WithLogger(discardLogger()),
	)

	cfg := DefaultRouterConfig()
	cfg.Recorder = rec
	cfg.Stats = agg
	cfg.Metrics = metrics
	cfg.Logger = discardLogger()
	cfg.EnableAudit = false
	return NewRouter(cfg)
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health", "/ready"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestRouterIngestAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	body := `{"lock_address": 1, "kind": "monitor", "thread_id": 1, "wait_start_nanos": 100}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/v1/wait", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("ingest status = %d, want 202\n%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rr.Code)
	}
	out := rr.Body.String()
	if !strings.Contains(out, "lockscope_waits_started_total 1") {
		t.Error("metrics should count the started wait")
	}
	if !strings.Contains(out, `lockscope_ingest_requests_total{endpoint="/ingest/v1/wait",outcome="accepted"} 1`) {
		t.Errorf("metrics should count the ingest request:\n%s", firstLines(out, 40))
	}
}

func TestRouterAdminACL(t *testing.T) {
	agg := stats.NewAggregator()
	rec := recorder.New(recorder.Config{}, recorder.WithObserver(agg), recorder.WithLogger(discardLogger()))

	cfg := DefaultRouterConfig()
	cfg.Recorder = rec
	cfg.Stats = agg
	cfg.Logger = discardLogger()
	cfg.EnableAudit = false
	cfg.AdminAllowList = []string{"127.0.0.1"}
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/status", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("allowed IP status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/status", nil)
	req.RemoteAddr = "10.9.9.9:9999"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("denied IP status = %d, want 403", rr.Code)
	}

	// Ingest is not behind the admin ACL.
	body := `{"lock_address": 5, "kind": "monitor", "thread_id": 2, "wait_start_nanos": 100}`
	req = httptest.NewRequest(http.MethodPost, "/ingest/v1/wait", strings.NewReader(body))
	req.RemoteAddr = "10.9.9.9:9999"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("ingest from non-admin IP status = %d, want 202", rr.Code)
	}
}

func TestServerShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", newTestRouter(t))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	// Give the listener a moment, then shut down.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if err := <-errCh; err != http.ErrServerClosed {
		t.Fatalf("ListenAndServe returned %v, want ErrServerClosed", err)
	}
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
