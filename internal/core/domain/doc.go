// Package domain defines the core domain models for LockScope.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - ContentionEvent: One wait/wake pairing observed on a lock
//   - SyncKind: Classification of the synchronizer primitive
//   - Errors: Domain-specific error definitions
//
// A ContentionEvent has exactly one owner at a time (whichever
// registry currently holds it); handing a copy outward goes
// through Clone.
//
// @req RQ-0101
// @design DS-0101
package domain
