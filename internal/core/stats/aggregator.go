// Package stats maintains per-lock aggregate contention statistics.
//
// The aggregator observes every paired wait/wake event, including
// ones the duration filter later suppresses, and keeps approximate
// per-lock totals on a sharded map so ingest threads never contend
// with the engine's registries. It backs the admin status endpoint
// and the CLI "top" view; it plays no part in pairing correctness.
//
// @design DS-0103
package stats

import (
	"sort"

	"github.com/yndnr/lockscope-go/internal/core/domain"
	"github.com/yndnr/lockscope-go/pkg/cmap"
)

// LockStats accumulates contention totals for one lock address.
type LockStats struct {
	LockAddress   uint64 `json:"lock_address"`
	ClassName     string `json:"class_name"`
	Kind          string `json:"kind"`
	WaitCount     uint64 `json:"wait_count"`
	TotalWaitNano int64  `json:"total_wait_nanos"`
	MaxWaitNanos  int64  `json:"max_wait_nanos"`
	LastWakeNanos int64  `json:"last_wake_nanos"`
}

// Aggregator accumulates LockStats keyed by lock address.
// It implements the engine's Observer interface.
type Aggregator struct {
	locks *cmap.Map[uint64, *LockStats]
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		locks: cmap.New[uint64, *LockStats](),
	}
}

// Observe folds one paired event into the per-lock totals.
//
// The map stores freshly-merged copies, never the shared pointer, so
// readers obtained via Top or Get can be used without locks.
func (a *Aggregator) Observe(ev *domain.ContentionEvent) {
	a.locks.Upsert(ev.LockAddress, nil, func(existing *LockStats, exists bool) *LockStats {
		next := LockStats{
			LockAddress: ev.LockAddress,
			ClassName:   ev.ClassName,
			Kind:        ev.Kind.String(),
		}
		if exists {
			next.WaitCount = existing.WaitCount
			next.TotalWaitNano = existing.TotalWaitNano
			next.MaxWaitNanos = existing.MaxWaitNanos
		}
		next.WaitCount++
		next.TotalWaitNano += ev.WaitDurationNanos
		if ev.WaitDurationNanos > next.MaxWaitNanos {
			next.MaxWaitNanos = ev.WaitDurationNanos
		}
		next.LastWakeNanos = ev.WakeNanos
		return &next
	})
}

// Get returns the stats for one lock address.
func (a *Aggregator) Get(lockAddress uint64) (*LockStats, bool) {
	return a.locks.Get(lockAddress)
}

// TrackedLocks returns the number of distinct lock addresses seen.
func (a *Aggregator) TrackedLocks() int {
	return a.locks.Count()
}

// Top returns up to n locks ordered by total wait time, descending.
func (a *Aggregator) Top(n int) []*LockStats {
	if n <= 0 {
		return nil
	}

	all := make([]*LockStats, 0, a.locks.Count())
	a.locks.Range(func(_ uint64, s *LockStats) bool {
		all = append(all, s)
		return true
	})

	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalWaitNano != all[j].TotalWaitNano {
			return all[i].TotalWaitNano > all[j].TotalWaitNano
		}
		return all[i].LockAddress < all[j].LockAddress
	})

	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Reset drops all accumulated statistics.
func (a *Aggregator) Reset() {
	a.locks.Clear()
}
