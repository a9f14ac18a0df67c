// Package httpserver provides the HTTP/HTTPS server for LockScope.
//
// This package implements the agent's external API using stdlib net/http:
//
//   - Ingest endpoints: /ingest/v1/wait, /ingest/v1/wake
//   - Admin endpoints: /admin/v1/status, /admin/v1/reset, /admin/v1/locks, /admin/v1/records
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - TLS support
//   - Middleware chain: RequestID, Recover, RateLimit, Audit, NetworkACL
//   - Graceful shutdown with configurable timeout
//   - Prometheus metrics integration
package httpserver
