// Package main provides the entry point for lockscope-agent.
//
// The agent receives lock wait and wake events from instrumented
// runtimes, pairs them into contention records, and provides:
//
//   - HTTP API for event ingest and admin queries
//   - Prometheus metrics exposition
//   - Pluggable record sinks: structured log, segmented journal,
//     queryable record store, or all at once
//   - Local Unix socket for management access
//
// Usage:
//
//	lockscope-agent [flags]
//	lockscope-agent --config /path/to/config.yaml
//
// Configuration comes from the file, LOCKSCOPE_* environment
// variables, and built-in defaults, in that order of precedence. The
// config file is watched; recorder settings apply without a restart.
package main
