package ramr

import (
	"sync"
	"time"

	"github.com/maestro-labs/mcae/pkg/mcaemetrics"
)

// tier1Entry is T1's in-process representation.
type tier1Entry struct {
	value        []byte
	expiresAt    time.Time
	priority     int
	accessCount  int
	lastAccessed time.Time
	sizeBytes    int
	insertedAt   time.Time
}

// tier1 is the in-process mapping key -> (value, expires_at), bounded by
// capacity (spec §4.3 T1). Grounded on the teacher's singleton-handle-
// with-RWMutex pattern (pkg/persistence/db.go), applied to a map instead
// of a *sql.DB handle.
type tier1 struct {
	mu       sync.RWMutex
	entries  map[string]*tier1Entry
	capacity int
	recorder mcaemetrics.Recorder
}

func newTier1(capacity int, recorder mcaemetrics.Recorder) *tier1 {
	if recorder == nil {
		recorder = mcaemetrics.Nop()
	}
	return &tier1{
		entries:  make(map[string]*tier1Entry),
		capacity: capacity,
		recorder: recorder,
	}
}

func (t *tier1) get(key string, now time.Time) (*tier1Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.After(now) {
		return nil, false
	}
	entry.accessCount++
	entry.lastAccessed = now
	return entry, true
}

// put inserts key into T1, evicting the highest-scoring (lowest
// priority, most stale) entry if the tier is at capacity. The
// just-inserted entry is never a candidate for eviction during its own
// insertion (spec §4.3: "Never evict an entry inserted in the current
// operation").
func (t *tier1) put(key string, entry *tier1Entry, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists && len(t.entries) >= t.capacity {
		t.evictLocked(now)
	}
	t.entries[key] = entry
}

func (t *tier1) evictLocked(now time.Time) {
	if len(t.entries) == 0 {
		return
	}
	oldestAge := 0.0
	for _, e := range t.entries {
		age := now.Sub(e.lastAccessed).Seconds()
		if age > oldestAge {
			oldestAge = age
		}
	}
	if oldestAge == 0 {
		oldestAge = 1
	}

	var victimKey string
	victimScore := -1.0
	for k, e := range t.entries {
		ageNormalized := now.Sub(e.lastAccessed).Seconds() / oldestAge
		score := evictionScore(e.priority, ageNormalized)
		if victimKey == "" || score > victimScore {
			victimKey = k
			victimScore = score
		}
	}
	if victimKey != "" {
		delete(t.entries, victimKey)
		t.recorder.ObserveCacheEviction("t1", "capacity")
	}
}

func (t *tier1) invalidate(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

func (t *tier1) invalidatePrefix(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.entries {
		if hasPrefix(k, prefix) {
			delete(t.entries, k)
		}
	}
}

func (t *tier1) reapExpired(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for k, e := range t.entries {
		if !e.expiresAt.After(now) {
			delete(t.entries, k)
			removed++
		}
	}
	return removed
}

func (t *tier1) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
