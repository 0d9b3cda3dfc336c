package ramr

import (
	"context"
	"sort"
	"time"

	"github.com/maestro-labs/mcae/pkg/capability"
	"github.com/maestro-labs/mcae/pkg/mcaelog"
	"github.com/maestro-labs/mcae/pkg/mcaemetrics"
)

// DefaultMemoryCapacity and DefaultEmbeddedCapacityEntries match spec §6.
const (
	DefaultMemoryCapacity          = 200
	DefaultEmbeddedCapacityEntries = 10000
)

// RAMR is the three-tier intelligent cache described in spec §4.3. It
// implements capability.Cache. The public operations here drive tier1
// (in-process), tier2 (embedded sqlite), and optionally tier3 (durable
// mirror); the admission/eviction/relevance math lives in scoring.go as
// pure functions per spec §9's composition-root guidance.
type RAMR struct {
	t1       *tier1
	t2       *tier2
	t3       DurableMirror
	now      func() time.Time
	recorder mcaemetrics.Recorder

	hits   int
	misses int
}

// Config configures a new RAMR instance.
type Config struct {
	MemoryCapacity          int
	EmbeddedCapacityEntries int
	EmbeddedDBPath          string // ":memory:" is accepted
	Durable                 DurableMirror
	Now                     func() time.Time
	Recorder                mcaemetrics.Recorder // nil discards observations
}

// New opens T1 and T2 (T2 is backed by modernc.org/sqlite) and returns a
// ready RAMR. Durable (T3) may be nil.
func New(cfg Config) (*RAMR, error) {
	if cfg.MemoryCapacity <= 0 {
		cfg.MemoryCapacity = DefaultMemoryCapacity
	}
	if cfg.EmbeddedCapacityEntries <= 0 {
		cfg.EmbeddedCapacityEntries = DefaultEmbeddedCapacityEntries
	}
	if cfg.EmbeddedDBPath == "" {
		cfg.EmbeddedDBPath = ":memory:"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Recorder == nil {
		cfg.Recorder = mcaemetrics.Nop()
	}

	t2, err := newTier2(cfg.EmbeddedDBPath, cfg.EmbeddedCapacityEntries, cfg.Recorder)
	if err != nil {
		return nil, err
	}

	return &RAMR{
		t1:       newTier1(cfg.MemoryCapacity, cfg.Recorder),
		t2:       t2,
		t3:       cfg.Durable,
		now:      cfg.Now,
		recorder: cfg.Recorder,
	}, nil
}

func (r *RAMR) Close() error {
	return r.t2.close()
}

var _ capability.Cache = (*RAMR)(nil)

// Put implements spec §4.3's put: computes an admission decision, writes
// to T2 when admitted (or to T1 alone when hints.MemoryOnly is set), and
// mirrors a T2 write into T1 when priority >= 7 and room is available.
func (r *RAMR) Put(ctx context.Context, key string, value []byte, hints capability.CacheHints) (capability.Stored, error) {
	now := r.now()
	decision := decideAdmission(value, hints.Type, hints.Priority, len(value))
	if hints.TTL != nil {
		decision.ttl = *hints.TTL
	}

	if !decision.shouldCache {
		return capability.Stored{Admitted: false}, nil
	}

	row := tier2Row{
		key:           key,
		value:         value,
		cacheType:     capability.CacheTypeRAMR,
		expiresAt:     now.Add(decision.ttl),
		priorityScore: decision.priority,
		accessCount:   0,
		lastAccessed:  now,
		sizeBytes:     len(value),
		metadata:      map[string]any{"type": hints.Type, "importance": hints.Importance},
	}

	degraded := false
	if hints.MemoryOnly {
		r.t1.put(key, &tier1Entry{
			value: value, expiresAt: row.expiresAt, priority: decision.priority,
			lastAccessed: now, sizeBytes: row.sizeBytes, insertedAt: now,
		}, now)
		return capability.Stored{Admitted: true, Priority: decision.priority, TTL: decision.ttl}, nil
	}

	if err := r.t2.put(row); err != nil {
		// A T2 I/O error causes the operation to record the value only
		// in T1 (if admitted) and return success with a warning flag
		// (spec §4.3 failure semantics); a serialization error is fatal
		// to this call only.
		if cacheErr, ok := err.(*capability.CacheError); ok && cacheErr.Kind == capability.CacheSerialize {
			return capability.Stored{}, err
		}
		mcaelog.Warnf(ctx, "ramr", "T2 put failed for key %s, falling back to T1-only: %v", key, err)
		r.t1.put(key, &tier1Entry{
			value: value, expiresAt: row.expiresAt, priority: decision.priority,
			lastAccessed: now, sizeBytes: row.sizeBytes, insertedAt: now,
		}, now)
		return capability.Stored{Admitted: true, Priority: decision.priority, TTL: decision.ttl, Degraded: true}, nil
	}

	if decision.priority >= 7 && r.t1.size() < r.t1.capacity {
		r.t1.put(key, &tier1Entry{
			value: value, expiresAt: row.expiresAt, priority: decision.priority,
			lastAccessed: now, sizeBytes: row.sizeBytes, insertedAt: now,
		}, now)
	} else if decision.priority >= 7 {
		degraded = true // T1 full: backpressure, put degrades to T2-only (spec §5)
	}

	return capability.Stored{Admitted: true, Priority: decision.priority, TTL: decision.ttl, Degraded: degraded}, nil
}

// Get implements spec §4.3's get: probe T1, then T2, opportunistically
// promoting into T1 on a T2 hit with priority >= 6. T3 is not consulted.
func (r *RAMR) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := r.now()

	if entry, ok := r.t1.get(key, now); ok {
		r.hits++
		r.recorder.ObserveCacheGet(string(capability.CacheTypeRAMR), true)
		return entry.value, true, nil
	}

	row, found, err := r.t2.get(key, now)
	if err != nil {
		mcaelog.Warnf(ctx, "ramr", "T2 get failed for key %s: %v", key, err)
		r.misses++
		r.recorder.ObserveCacheGet(string(capability.CacheTypeRAMR), false)
		return nil, false, nil
	}
	if !found {
		r.misses++
		r.recorder.ObserveCacheGet(string(capability.CacheTypeRAMR), false)
		return nil, false, nil
	}

	r.hits++
	r.recorder.ObserveCacheGet(string(capability.CacheTypeRAMR), true)
	if row.priorityScore >= 6 && r.t1.size() < r.t1.capacity {
		r.t1.put(key, &tier1Entry{
			value: row.value, expiresAt: row.expiresAt, priority: row.priorityScore,
			lastAccessed: now, sizeBytes: row.sizeBytes, insertedAt: now,
		}, now)
	}
	return row.value, true, nil
}

// GetRelevant implements spec §4.3's get_relevant: score every
// non-expired T2 entry and return the top max by score descending.
func (r *RAMR) GetRelevant(ctx context.Context, queryText string, max int) ([]capability.RelevantEntry, error) {
	now := r.now()
	rows, err := r.t2.scanForRelevance(now)
	if err != nil {
		return nil, err
	}

	type scored struct {
		row   tier2Row
		score float64
	}
	scoredRows := make([]scored, 0, len(rows))
	for _, row := range rows {
		preview := row.key + "||" + previewOf(row.value)
		score := relevanceScore(queryText, preview, row.priorityScore, row.lastAccessed, now)
		scoredRows = append(scoredRows, scored{row: row, score: score})
	}

	sort.Slice(scoredRows, func(i, j int) bool { return scoredRows[i].score > scoredRows[j].score })

	if max <= 0 {
		max = 5
	}
	if len(scoredRows) > max {
		scoredRows = scoredRows[:max]
	}

	result := make([]capability.RelevantEntry, 0, len(scoredRows))
	for _, s := range scoredRows {
		result = append(result, capability.RelevantEntry{Key: s.row.key, Value: s.row.value, Score: s.score})
	}
	return result, nil
}

func previewOf(value []byte) string {
	const maxPreview = 256
	if len(value) > maxPreview {
		return string(value[:maxPreview])
	}
	return string(value)
}

func (r *RAMR) Invalidate(ctx context.Context, key string) error {
	r.t1.invalidate(key)
	return r.t2.invalidate(key)
}

func (r *RAMR) InvalidatePrefix(ctx context.Context, prefix string) error {
	r.t1.invalidatePrefix(prefix)
	return r.t2.invalidatePrefix(prefix)
}

func (r *RAMR) Stats(ctx context.Context) (capability.CacheStats, error) {
	now := r.now()
	total, err := r.t2.count()
	if err != nil {
		return capability.CacheStats{}, err
	}
	valid, err := r.t2.countValid(now)
	if err != nil {
		return capability.CacheStats{}, err
	}
	return capability.CacheStats{
		TotalEntries: total,
		ValidEntries: valid,
		Tier1Size:    r.t1.size(),
		Hits:         r.hits,
		Misses:       r.misses,
	}, nil
}

// ReapExpired removes expired entries from both tiers; idempotent, may
// be called on a schedule or lazily before a large read (spec §4.3).
func (r *RAMR) ReapExpired(ctx context.Context) (int, error) {
	now := r.now()
	n1 := r.t1.reapExpired(now)
	n2, err := r.t2.reapExpired(now)
	if err != nil {
		return n1, err
	}
	return n1 + n2, nil
}
