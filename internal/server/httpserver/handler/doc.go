// Package handler provides HTTP request handlers for LockScope.
//
// This package implements the HTTP API endpoints for contention event
// ingest, lock statistics, and administrative operations.
package handler
