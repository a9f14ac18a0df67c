// Package metric provides Prometheus metrics for LockScope.
package metric

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if r.Registerer() == nil {
		t.Error("Registerer() returned nil")
	}

	// Exercise every metric once; MustRegister panics on duplicates,
	// so reaching here already proves registration is consistent.
	r.WaitsStarted.Inc()
	r.DuplicateWaits.Inc()
	r.WakesMatched.Inc()
	r.OrphanWakes.Inc()
	r.RecordsForwarded.Inc()
	r.RecordsFiltered.Inc()
	r.SinkErrors.Inc()
	r.HeldLocks.Set(3)
	r.PendingWaiters.Set(2)
	r.SweepEvictions.Add(5)
	r.SweepDuration.Observe(0.001)
	r.IngestRequests.WithLabelValues("wait", "ok").Inc()
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRegistry()
	r.WaitsStarted.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "lockscope_waits_started_total 1") {
		t.Errorf("metrics output missing counter, got:\n%s", body[:min(len(body), 500)])
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("metrics output missing Go runtime collector")
	}
}
