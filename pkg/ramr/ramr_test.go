package ramr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-labs/mcae/pkg/capability"
)

func newTestRAMR(t *testing.T) *RAMR {
	t.Helper()
	r, err := New(Config{MemoryCapacity: 3, EmbeddedCapacityEntries: 100, EmbeddedDBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRAMR(t)

	stored, err := r.Put(ctx, "k1", []byte("hello world"), capability.CacheHints{Type: "solution"})
	require.NoError(t, err)
	assert.True(t, stored.Admitted)

	value, found, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello world", string(value))
}

func TestGetReturnsNoneWhenExpired(t *testing.T) {
	ctx := context.Background()
	current := time.Now()
	r, err := New(Config{MemoryCapacity: 10, EmbeddedCapacityEntries: 100, EmbeddedDBPath: ":memory:", Now: func() time.Time { return current }})
	require.NoError(t, err)
	defer r.Close()

	ttl := 1 * time.Millisecond
	_, err = r.Put(ctx, "expiring", []byte("v"), capability.CacheHints{Type: "conversation_context", TTL: &ttl})
	require.NoError(t, err)

	current = current.Add(time.Hour)
	_, found, err := r.Get(ctx, "expiring")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateRemovesEntry(t *testing.T) {
	ctx := context.Background()
	r := newTestRAMR(t)

	_, err := r.Put(ctx, "k1", []byte("v"), capability.CacheHints{Type: "solution"})
	require.NoError(t, err)

	require.NoError(t, r.Invalidate(ctx, "k1"))

	_, found, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidatePrefixRemovesMatching(t *testing.T) {
	ctx := context.Background()
	r := newTestRAMR(t)

	_, _ = r.Put(ctx, "artifacts:p1:a", []byte("v"), capability.CacheHints{Type: "solution"})
	_, _ = r.Put(ctx, "artifacts:p1:b", []byte("v"), capability.CacheHints{Type: "solution"})
	_, _ = r.Put(ctx, "summary:p1:c", []byte("v"), capability.CacheHints{Type: "summary"})

	require.NoError(t, r.InvalidatePrefix(ctx, "artifacts:p1:"))

	_, found, _ := r.Get(ctx, "artifacts:p1:a")
	assert.False(t, found)
	_, found, _ = r.Get(ctx, "summary:p1:c")
	assert.True(t, found)
}

func TestLowPriorityEntryNotAdmitted(t *testing.T) {
	ctx := context.Background()
	r := newTestRAMR(t)
	priority := 2
	stored, err := r.Put(ctx, "casual", []byte("v"), capability.CacheHints{Type: "casual", Priority: &priority})
	require.NoError(t, err)
	assert.False(t, stored.Admitted)
}

func TestReapExpiredIsIdempotent(t *testing.T) {
	ctx := context.Background()
	current := time.Now()
	r, err := New(Config{MemoryCapacity: 10, EmbeddedCapacityEntries: 100, EmbeddedDBPath: ":memory:", Now: func() time.Time { return current }})
	require.NoError(t, err)
	defer r.Close()

	ttl := time.Millisecond
	_, _ = r.Put(ctx, "expiring", []byte("v"), capability.CacheHints{Type: "conversation_context", TTL: &ttl})
	current = current.Add(time.Hour)

	n1, err := r.ReapExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n1, 1)

	n2, err := r.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n2)
}

func TestGetRelevantRanksByScore(t *testing.T) {
	ctx := context.Background()
	r := newTestRAMR(t)

	priority := 9
	_, _ = r.Put(ctx, "strongmatch", []byte("database migration guide"), capability.CacheHints{Type: "solution", Priority: &priority})
	lowPriority := 4
	_, _ = r.Put(ctx, "weakmatch", []byte("totally unrelated content here"), capability.CacheHints{Type: "configuration", Priority: &lowPriority})

	results, err := r.GetRelevant(ctx, "database migration", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "strongmatch", results[0].Key)
}

// TestEvictionByIdentityKeepsHighPriorityRecent exercises spec §8
// scenario 5: a cap=3 T1 holding A (priority 9, recent), B (priority 5,
// recent), and C (priority 5, old) must evict C, the lowest-priority
// and stalest entry, when a fourth entry is inserted — never A or B.
func TestEvictionByIdentityKeepsHighPriorityRecent(t *testing.T) {
	ctx := context.Background()
	current := time.Now()
	r, err := New(Config{MemoryCapacity: 3, EmbeddedCapacityEntries: 100, EmbeddedDBPath: ":memory:", Now: func() time.Time { return current }})
	require.NoError(t, err)
	defer r.Close()

	priorityC := 5
	_, err = r.Put(ctx, "C", []byte("v"), capability.CacheHints{Priority: &priorityC, MemoryOnly: true})
	require.NoError(t, err)

	current = current.Add(10 * time.Hour)

	priorityA := 9
	_, err = r.Put(ctx, "A", []byte("v"), capability.CacheHints{Priority: &priorityA, MemoryOnly: true})
	require.NoError(t, err)
	priorityB := 5
	_, err = r.Put(ctx, "B", []byte("v"), capability.CacheHints{Priority: &priorityB, MemoryOnly: true})
	require.NoError(t, err)

	current = current.Add(time.Minute)

	priorityD := 9
	_, err = r.Put(ctx, "D", []byte("v"), capability.CacheHints{Priority: &priorityD, MemoryOnly: true})
	require.NoError(t, err)

	_, found, err := r.Get(ctx, "C")
	require.NoError(t, err)
	assert.False(t, found, "C (low priority, stale) must be evicted")

	for _, key := range []string{"A", "B", "D"} {
		_, found, err := r.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found, "%s must survive eviction", key)
	}
}

func TestStatsReflectsEntries(t *testing.T) {
	ctx := context.Background()
	r := newTestRAMR(t)
	_, _ = r.Put(ctx, "a", []byte("v"), capability.CacheHints{Type: "solution"})

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.ValidEntries)
}
