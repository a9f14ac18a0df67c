// Package metric provides Prometheus metrics for LockScope.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is the metric namespace prefix for all agent metrics.
const Namespace = "lockscope"

// Registry holds all application metrics.
type Registry struct {
	prom *prometheus.Registry

	// Pairing metrics
	WaitsStarted   prometheus.Counter
	DuplicateWaits prometheus.Counter
	WakesMatched   prometheus.Counter
	OrphanWakes    prometheus.Counter

	// Output metrics
	RecordsForwarded prometheus.Counter
	RecordsFiltered  prometheus.Counter
	SinkErrors       prometheus.Counter

	// Registry size metrics
	HeldLocks      prometheus.Gauge
	PendingWaiters prometheus.Gauge

	// Sweeper metrics
	SweepEvictions prometheus.Counter
	SweepDuration  prometheus.Histogram

	// Ingest metrics
	IngestRequests *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all agent metrics
// registered, plus the standard Go runtime and process collectors.
func NewRegistry() *Registry {
	prom := prometheus.NewRegistry()
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{prom: prom}

	r.WaitsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "waits_started_total",
		Help:      "Wait-begin events accepted into the waiter registry.",
	})
	r.DuplicateWaits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "duplicate_waits_total",
		Help:      "Wait-begin events discarded because the thread was already waiting on the lock.",
	})
	r.WakesMatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wakes_matched_total",
		Help:      "Wake events paired with a pending wait.",
	})
	r.OrphanWakes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "orphan_wakes_total",
		Help:      "Wake events discarded because no matching wait was pending.",
	})
	r.RecordsForwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_forwarded_total",
		Help:      "Completed contention records forwarded to the sink.",
	})
	r.RecordsFiltered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_filtered_total",
		Help:      "Completed contention records suppressed by the duration filter.",
	})
	r.SinkErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sink_errors_total",
		Help:      "Errors returned by the record sink.",
	})
	r.HeldLocks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "held_locks",
		Help:      "Entries currently in the held-lock registry.",
	})
	r.PendingWaiters = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "pending_waiters",
		Help:      "Pending wait events currently in the waiter registry.",
	})
	r.SweepEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sweep_evictions_total",
		Help:      "Stale held-lock entries evicted by the expiry sweeper.",
	})
	r.SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Wall time of each expiry sweep.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 7), // 1µs .. 1s
	})
	r.IngestRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "ingest_requests_total",
		Help:      "Ingest HTTP requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	prom.MustRegister(
		r.WaitsStarted,
		r.DuplicateWaits,
		r.WakesMatched,
		r.OrphanWakes,
		r.RecordsForwarded,
		r.RecordsFiltered,
		r.SinkErrors,
		r.HeldLocks,
		r.PendingWaiters,
		r.SweepEvictions,
		r.SweepDuration,
		r.IngestRequests,
	)

	return r
}

// Registerer exposes the underlying registerer so components with
// their own metrics (e.g. the Badger record store) can attach them.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.prom
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}
