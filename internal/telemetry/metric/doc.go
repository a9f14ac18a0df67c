// Package metric provides Prometheus metrics for LockScope.
//
// It exposes metrics in Prometheus format for monitoring event
// ingest rates, wait/wake pairing outcomes, registry sizes, sweeper
// activity, and sink throughput.
//
// @req RQ-0402
// @design DS-0502
package metric
