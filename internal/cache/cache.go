package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepInterval is how often StartSweeper purges stale entries.
const DefaultSweepInterval = 60 * time.Second

// Manager is a capacity-bounded TTL cache keyed by string. When full it
// evicts the entry with the oldest write time, not the least recently read.
type Manager[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	cfg     Config
	seq     uint64
	stats   Stats
	now     func() time.Time
	sweeper *cron.Cron
}

type entry[V any] struct {
	data      V
	timestamp time.Time
	ttl       time.Duration
	seq       uint64
}

func (e *entry[V]) stale(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// New creates a cache manager. A disabled config yields a cache that
// misses on every Get and ignores every Set.
func New[V any](cfg Config) *Manager[V] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	return &Manager[V]{
		entries: make(map[string]*entry[V]),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Enabled reports whether the cache stores anything.
func (m *Manager[V]) Enabled() bool {
	return m.cfg.Enabled
}

func (m *Manager[V]) key(k string) string {
	return m.cfg.KeyPrefix + k
}

// Get returns the live value for key. A stale entry is removed.
func (m *Manager[V]) Get(key string) (V, bool) {
	var zero V
	if !m.cfg.Enabled {
		return zero, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(key)
	e, ok := m.entries[k]
	if !ok {
		m.stats.Misses++
		return zero, false
	}
	if e.stale(m.now()) {
		delete(m.entries, k)
		m.stats.Expired++
		m.stats.Misses++
		return zero, false
	}
	m.stats.Hits++
	return e.data, true
}

// Set stores value under key. The optional ttl overrides the default;
// a zero or negative ttl also means the default.
func (m *Manager[V]) Set(key string, value V, ttl ...time.Duration) {
	if !m.cfg.Enabled {
		return
	}
	d := m.cfg.DefaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(key)
	if _, exists := m.entries[k]; !exists && len(m.entries) >= m.cfg.MaxEntries {
		m.evictOldestLocked()
	}
	m.seq++
	m.entries[k] = &entry[V]{data: value, timestamp: m.now(), ttl: d, seq: m.seq}
}

// evictOldestLocked drops the entry with the smallest write timestamp.
// Ties go to the earliest write.
func (m *Manager[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    *entry[V]
	)
	for k, e := range m.entries {
		if oldest == nil || e.timestamp.Before(oldest.timestamp) ||
			(e.timestamp.Equal(oldest.timestamp) && e.seq < oldest.seq) {
			oldestKey, oldest = k, e
		}
	}
	if oldest != nil {
		delete(m.entries, oldestKey)
		m.stats.Evictions++
	}
}

// Delete removes key.
func (m *Manager[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, m.key(key))
}

// Clear removes all entries.
func (m *Manager[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry[V])
}

// Sweep removes every stale entry and returns how many were removed.
func (m *Manager[V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if e.stale(now) {
			delete(m.entries, k)
			removed++
		}
	}
	m.stats.Expired += int64(removed)
	return removed
}

// StartSweeper runs Sweep on a fixed interval until Destroy is called.
// Calling it again is a no-op. Nothing is scheduled when the cache is
// disabled.
func (m *Manager[V]) StartSweeper(interval time.Duration, logger *slog.Logger) {
	if !m.cfg.Enabled {
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sweeper != nil {
		return
	}
	c := cron.New()
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if n := m.Sweep(); n > 0 {
			logger.Debug("cache sweep", "removed", n)
		}
	}))
	c.Start()
	m.sweeper = c
}

// Destroy stops the sweeper and clears all entries.
func (m *Manager[V]) Destroy() {
	m.mu.Lock()
	c := m.sweeper
	m.sweeper = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	m.Clear()
}

// Stats returns a snapshot of size and counters.
func (m *Manager[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.entries)
	s.MaxSize = m.cfg.MaxEntries
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// ResetStats zeroes the hit, miss, eviction and expiry counters.
func (m *Manager[V]) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}
