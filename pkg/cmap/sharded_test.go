package cmap

import (
	"sync"
	"testing"
)

func TestBasicOperations(t *testing.T) {
	m := New[uint64, string]()

	m.Set(0xdead, "a")
	if v, ok := m.Get(0xdead); !ok || v != "a" {
		t.Errorf("Get = (%q, %v), want (a, true)", v, ok)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	m.Delete(0xdead)
	if _, ok := m.Get(0xdead); ok {
		t.Error("key survived Delete")
	}
}

func TestNewWithShardsRejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, -1, 3, 12} {
		m := NewWithShards[uint64, int](n)
		if len(m.shards) != DefaultShardCount {
			t.Errorf("NewWithShards(%d) made %d shards, want default %d", n, len(m.shards), DefaultShardCount)
		}
	}
	if m := NewWithShards[uint64, int](64); len(m.shards) != 64 {
		t.Errorf("made %d shards, want 64", len(m.shards))
	}
}

func TestUpsert(t *testing.T) {
	m := New[uint64, int]()

	got := m.Upsert(1, 10, func(current int, exists bool) int {
		if exists {
			return current + 10
		}
		return 10
	})
	if got != 10 {
		t.Errorf("first Upsert = %d, want 10", got)
	}

	got = m.Upsert(1, 10, func(current int, exists bool) int {
		if !exists {
			t.Error("second Upsert saw exists=false")
		}
		return current + 10
	})
	if got != 20 {
		t.Errorf("second Upsert = %d, want 20", got)
	}
}

func TestPop(t *testing.T) {
	m := New[uint64, string]()
	m.Set(7, "x")

	if v, ok := m.Pop(7); !ok || v != "x" {
		t.Errorf("Pop = (%q, %v), want (x, true)", v, ok)
	}
	if _, ok := m.Pop(7); ok {
		t.Error("second Pop found the key")
	}
}

func TestClear(t *testing.T) {
	m := New[uint64, int]()
	for i := uint64(0); i < 100; i++ {
		m.Set(i, int(i))
	}
	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count = %d after Clear, want 0", m.Count())
	}
}

func TestRange(t *testing.T) {
	m := New[uint64, int]()
	for i := uint64(1); i <= 50; i++ {
		m.Set(i, int(i))
	}

	sum := 0
	m.Range(func(_ uint64, v int) bool {
		sum += v
		return true
	})
	if sum != 50*51/2 {
		t.Errorf("Range sum = %d, want %d", sum, 50*51/2)
	}

	// Early stop.
	n := 0
	m.Range(func(uint64, int) bool {
		n++
		return n < 10
	})
	if n != 10 {
		t.Errorf("Range visited %d after early stop, want 10", n)
	}
}

func TestStructKeys(t *testing.T) {
	type lockKey struct {
		addr uint64
		tid  int32
	}
	m := New[lockKey, string]()
	m.Set(lockKey{0xbeef, 4}, "held")
	if v, ok := m.Get(lockKey{0xbeef, 4}); !ok || v != "held" {
		t.Errorf("Get = (%q, %v), want (held, true)", v, ok)
	}
	if _, ok := m.Get(lockKey{0xbeef, 5}); ok {
		t.Error("distinct key matched")
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[uint64, int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := uint64(i % 128)
				m.Upsert(key, 1, func(current int, exists bool) int {
					if exists {
						return current + 1
					}
					return 1
				})
				m.Get(key)
			}
		}()
	}
	wg.Wait()

	total := 0
	m.Range(func(_ uint64, v int) bool {
		total += v
		return true
	})
	if total != 8*1000 {
		t.Errorf("total increments = %d, want %d", total, 8*1000)
	}
}
