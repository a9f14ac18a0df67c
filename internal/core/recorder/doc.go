// Package recorder implements the lock-contention tracking engine.
//
// The engine pairs wait-begin and wake events emitted by runtime
// instrumentation, attributes contention to the thread that was
// holding the lock, and forwards completed records to a Sink once
// they pass the minimum-duration filter. Two registries back it:
//
//   - held-lock registry: lock address -> event describing the last
//     thread known to have held the lock
//   - waiter registry: lock address -> per-thread pending events
//
// One mutex guards both registries. Holder resolution deliberately
// runs in its own critical section before the waiter insert, so the
// attribution hint may be stale under contention bursts; that window
// is part of the protocol, not a defect to close.
//
// The Sweeper evicts held-lock entries that went stale without any
// pending waiter, bounding memory for locks acquired once and never
// contended again.
//
// @req RQ-0102
// @design DS-0102
package recorder
