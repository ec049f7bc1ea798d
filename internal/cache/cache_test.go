package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(maxEntries int) (*Manager[string], *fakeClock) {
	m := New[string](Config{Enabled: true, DefaultTTL: time.Minute, MaxEntries: maxEntries})
	clock := newFakeClock()
	m.now = clock.Now
	return m, clock
}

func TestManager_GetSet(t *testing.T) {
	m, _ := newTestManager(10)

	// Miss
	if _, ok := m.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	m.Set("a", "v")
	v, ok := m.Get("a")
	if !ok || v != "v" {
		t.Fatalf("Get(a) = %q, %v; want v, true", v, ok)
	}
}

func TestManager_TTLBoundary(t *testing.T) {
	m, clock := newTestManager(10)
	m.Set("k", "v", time.Second)

	clock.Advance(time.Second)
	if _, ok := m.Get("k"); !ok {
		t.Fatal("expected hit when age equals ttl")
	}

	clock.Advance(100 * time.Millisecond)
	if _, ok := m.Get("k"); ok {
		t.Fatal("expected miss after ttl")
	}
	if s := m.Stats(); s.Size != 0 {
		t.Fatalf("size = %d, want 0 (stale entry removed on read)", s.Size)
	}
}

func TestManager_TTLRealClock(t *testing.T) {
	m := New[string](Config{Enabled: true, DefaultTTL: time.Hour, MaxEntries: 10})
	m.Set("short", "1", 10*time.Millisecond)
	m.Set("long", "2")

	time.Sleep(25 * time.Millisecond)

	if _, ok := m.Get("short"); ok {
		t.Fatal("expected miss for short ttl")
	}
	if v, ok := m.Get("long"); !ok || v != "2" {
		t.Fatal("expected hit for default ttl")
	}
}

func TestManager_Disabled(t *testing.T) {
	m := New[string](Config{Enabled: false, DefaultTTL: time.Minute})
	m.Set("a", "v")
	if _, ok := m.Get("a"); ok {
		t.Fatal("disabled cache must miss")
	}
	if s := m.Stats(); s.Size != 0 {
		t.Fatalf("size = %d, want 0", s.Size)
	}
}

func TestManager_EvictsOldestWrite(t *testing.T) {
	m, clock := newTestManager(2)

	m.Set("a", "1")
	clock.Advance(time.Millisecond)
	m.Set("b", "2")
	clock.Advance(time.Millisecond)

	// Reading "a" does not protect it: eviction is by write time.
	if _, ok := m.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}

	m.Set("c", "3")

	if _, ok := m.Get("a"); ok {
		t.Fatal("expected a to be evicted")
	}
	if _, ok := m.Get("b"); !ok {
		t.Fatal("expected b to survive")
	}
	if _, ok := m.Get("c"); !ok {
		t.Fatal("expected c to be present")
	}
	s := m.Stats()
	if s.Evictions != 1 || s.Size != 2 {
		t.Fatalf("stats = %+v, want 1 eviction and size 2", s)
	}
}

func TestManager_EvictionTieBreak(t *testing.T) {
	m, _ := newTestManager(3)

	// Same timestamp for every write; the first write loses.
	m.Set("x", "1")
	m.Set("y", "2")
	m.Set("z", "3")
	m.Set("w", "4")

	if _, ok := m.Get("x"); ok {
		t.Fatal("expected x to be evicted")
	}
	for _, k := range []string{"y", "z", "w"} {
		if _, ok := m.Get(k); !ok {
			t.Fatalf("expected %s to survive", k)
		}
	}
}

func TestManager_OverwriteDoesNotEvict(t *testing.T) {
	m, clock := newTestManager(2)
	m.Set("a", "1")
	clock.Advance(time.Millisecond)
	m.Set("b", "2")
	clock.Advance(time.Millisecond)
	m.Set("a", "updated")

	if v, ok := m.Get("a"); !ok || v != "updated" {
		t.Fatalf("Get(a) = %q, %v; want updated", v, ok)
	}
	if _, ok := m.Get("b"); !ok {
		t.Fatal("overwrite must not evict b")
	}

	// a was rewritten last, so b is now the oldest write.
	m.Set("c", "3")
	if _, ok := m.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
}

func TestManager_DeleteClear(t *testing.T) {
	m, _ := newTestManager(10)
	m.Set("a", "1")
	m.Set("b", "2")

	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}

	m.Clear()
	if s := m.Stats(); s.Size != 0 {
		t.Fatalf("size = %d after clear", s.Size)
	}
}

func TestManager_KeyPrefix(t *testing.T) {
	m := New[string](Config{Enabled: true, DefaultTTL: time.Minute, MaxEntries: 10, KeyPrefix: "cg:"})
	m.Set("a", "1")

	m.mu.Lock()
	_, ok := m.entries["cg:a"]
	m.mu.Unlock()
	if !ok {
		t.Fatal("expected prefixed key in entry map")
	}
	if v, ok := m.Get("a"); !ok || v != "1" {
		t.Fatal("expected hit through prefix")
	}
}

func TestManager_Sweep(t *testing.T) {
	m, clock := newTestManager(10)
	m.Set("short", "1", time.Second)
	m.Set("long", "2", time.Hour)

	clock.Advance(2 * time.Second)

	// Nothing reads "short"; the sweep still reclaims it.
	if n := m.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	s := m.Stats()
	if s.Size != 1 || s.Expired != 1 {
		t.Fatalf("stats = %+v, want size 1 and 1 expired", s)
	}
}

func TestManager_SweeperAndDestroy(t *testing.T) {
	m, clock := newTestManager(10)
	m.Set("a", "1", time.Second)
	clock.Advance(2 * time.Second)

	m.StartSweeper(time.Second, nil)
	m.StartSweeper(time.Second, nil) // no-op

	deadline := time.Now().Add(3 * time.Second)
	for m.Stats().Size != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not remove stale entry")
		}
		time.Sleep(50 * time.Millisecond)
	}

	m.Set("b", "2")
	m.Destroy()
	if s := m.Stats(); s.Size != 0 {
		t.Fatalf("size = %d after destroy", s.Size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sweeper != nil {
		t.Fatal("sweeper still set after destroy")
	}
}

func TestManager_Stats(t *testing.T) {
	m, _ := newTestManager(5)
	m.Set("a", "1")
	m.Get("a")
	m.Get("a")
	m.Get("missing")

	s := m.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 2/1", s.Hits, s.Misses)
	}
	if s.MaxSize != 5 || s.Size != 1 {
		t.Fatalf("size=%d max=%d, want 1/5", s.Size, s.MaxSize)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Fatalf("hit rate = %f", s.HitRate)
	}

	m.ResetStats()
	if s := m.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Fatalf("after reset = %+v", s)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := New[int](Config{Enabled: true, DefaultTTL: time.Minute, MaxEntries: 50})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("k%d", (g*200+i)%80)
				m.Set(k, i)
				m.Get(k)
				if i%50 == 0 {
					m.Sweep()
				}
			}
		}(g)
	}
	wg.Wait()
	if s := m.Stats(); s.Size > 50 {
		t.Fatalf("size = %d exceeds max 50", s.Size)
	}
}
