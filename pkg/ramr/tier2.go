package ramr

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maestro-labs/mcae/pkg/capability"
	"github.com/maestro-labs/mcae/pkg/mcaemetrics"
)

// tier2 is the embedded relational store (spec §4.3 T2), bounded by
// embeddedCapacityEntries. Grounded on the teacher's pkg/persistence/db.go
// singleton pattern: WAL mode, a busy timeout, and a single-connection
// pool since sqlite only supports one writer at a time.
type tier2 struct {
	mu       sync.Mutex
	db       *sql.DB
	capacity int
	recorder mcaemetrics.Recorder
}

func newTier2(dbPath string, capacity int, recorder mcaemetrics.Recorder) (*tier2, error) {
	if recorder == nil {
		recorder = mcaemetrics.Nop()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	if dbPath == ":memory:" {
		dsn = "file::memory:?cache=shared&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open embedded store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping embedded store: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		return nil, fmt.Errorf("initialize embedded schema: %w", err)
	}

	return &tier2{db: db, capacity: capacity, recorder: recorder}, nil
}

func (t *tier2) close() error {
	return t.db.Close()
}

type tier2Row struct {
	key           string
	value         []byte
	cacheType     capability.CacheType
	expiresAt     time.Time
	priorityScore int
	accessCount   int
	lastAccessed  time.Time
	sizeBytes     int
	metadata      map[string]any
}

func (t *tier2) put(row tier2Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	metaJSON, err := json.Marshal(row.metadata)
	if err != nil {
		return &capability.CacheError{Kind: capability.CacheSerialize, Message: "marshal metadata", Err: err}
	}

	_, err = t.db.Exec(`
		INSERT INTO cache_entries (key, value, cache_type, expires_at, priority_score, access_count, last_accessed, size_bytes, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			cache_type = excluded.cache_type,
			expires_at = excluded.expires_at,
			priority_score = excluded.priority_score,
			access_count = excluded.access_count,
			last_accessed = excluded.last_accessed,
			size_bytes = excluded.size_bytes,
			metadata = excluded.metadata
	`, row.key, row.value, string(row.cacheType), row.expiresAt.Unix(), row.priorityScore, row.accessCount, row.lastAccessed.Unix(), row.sizeBytes, string(metaJSON))
	if err != nil {
		return &capability.CacheError{Kind: capability.CacheIO, Message: "insert cache entry", Err: err}
	}

	if err := t.enforceCapacityLocked(); err != nil {
		return err
	}
	return nil
}

// enforceCapacityLocked removes highest-scoring (lowest priority, most
// stale) entries until the table holds no more than the soft cap 0.9*capacity
// (spec §4.3 T2 eviction).
func (t *tier2) enforceCapacityLocked() error {
	var count int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return &capability.CacheError{Kind: capability.CacheIO, Message: "count entries", Err: err}
	}

	softCap := int(0.9 * float64(t.capacity))
	if count <= softCap {
		return nil
	}

	rows, err := t.db.Query(`SELECT key, priority_score, last_accessed FROM cache_entries`)
	if err != nil {
		return &capability.CacheError{Kind: capability.CacheIO, Message: "scan entries for eviction", Err: err}
	}
	type candidate struct {
		key          string
		priority     int
		lastAccessed time.Time
	}
	var candidates []candidate
	now := time.Now()
	oldestAge := 1.0
	for rows.Next() {
		var key string
		var priority int
		var lastAccessedUnix int64
		if err := rows.Scan(&key, &priority, &lastAccessedUnix); err != nil {
			rows.Close()
			return &capability.CacheError{Kind: capability.CacheIO, Message: "scan eviction row", Err: err}
		}
		la := time.Unix(lastAccessedUnix, 0)
		candidates = append(candidates, candidate{key: key, priority: priority, lastAccessed: la})
		if age := now.Sub(la).Seconds(); age > oldestAge {
			oldestAge = age
		}
	}
	rows.Close()

	type scored struct {
		key   string
		score float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ageNormalized := now.Sub(c.lastAccessed).Seconds() / oldestAge
		scoredList = append(scoredList, scored{key: c.key, score: evictionScore(c.priority, ageNormalized)})
	}

	toEvict := count - softCap
	for i := 0; i < toEvict && len(scoredList) > 0; i++ {
		maxIdx := 0
		for j := 1; j < len(scoredList); j++ {
			if scoredList[j].score > scoredList[maxIdx].score {
				maxIdx = j
			}
		}
		if _, err := t.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, scoredList[maxIdx].key); err != nil {
			return &capability.CacheError{Kind: capability.CacheIO, Message: "evict entry", Err: err}
		}
		t.recorder.ObserveCacheEviction("t2", "soft_cap")
		scoredList = append(scoredList[:maxIdx], scoredList[maxIdx+1:]...)
	}

	return nil
}

func (t *tier2) get(key string, now time.Time) (*tier2Row, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var row tier2Row
	var cacheType string
	var expiresAtUnix, lastAccessedUnix int64
	var metaJSON string

	err := t.db.QueryRow(`
		SELECT key, value, cache_type, expires_at, priority_score, access_count, last_accessed, size_bytes, metadata
		FROM cache_entries WHERE key = ?
	`, key).Scan(&row.key, &row.value, &cacheType, &expiresAtUnix, &row.priorityScore, &row.accessCount, &lastAccessedUnix, &row.sizeBytes, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &capability.CacheError{Kind: capability.CacheIO, Message: "get cache entry", Err: err}
	}

	row.cacheType = capability.CacheType(cacheType)
	row.expiresAt = time.Unix(expiresAtUnix, 0)
	row.lastAccessed = time.Unix(lastAccessedUnix, 0)
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &row.metadata)
	}

	if !row.expiresAt.After(now) {
		return nil, false, nil
	}

	row.accessCount++
	row.lastAccessed = now
	if _, err := t.db.Exec(`UPDATE cache_entries SET access_count = ?, last_accessed = ? WHERE key = ?`, row.accessCount, now.Unix(), key); err != nil {
		return &row, true, &capability.CacheError{Kind: capability.CacheIO, Message: "update access stats", Err: err}
	}

	return &row, true, nil
}

func (t *tier2) invalidate(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		return &capability.CacheError{Kind: capability.CacheIO, Message: "invalidate entry", Err: err}
	}
	return nil
}

func (t *tier2) invalidatePrefix(prefix string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.db.Exec(`DELETE FROM cache_entries WHERE key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		return &capability.CacheError{Kind: capability.CacheIO, Message: "invalidate prefix", Err: err}
	}
	return nil
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

func (t *tier2) reapExpired(now time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	res, err := t.db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, &capability.CacheError{Kind: capability.CacheIO, Message: "reap expired", Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *tier2) scanForRelevance(now time.Time) ([]tier2Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.db.Query(`
		SELECT key, value, cache_type, expires_at, priority_score, access_count, last_accessed, size_bytes, metadata
		FROM cache_entries WHERE expires_at > ?
	`, now.Unix())
	if err != nil {
		return nil, &capability.CacheError{Kind: capability.CacheIO, Message: "scan for relevance", Err: err}
	}
	defer rows.Close()

	var result []tier2Row
	for rows.Next() {
		var r tier2Row
		var cacheType string
		var expiresAtUnix, lastAccessedUnix int64
		var metaJSON string
		if err := rows.Scan(&r.key, &r.value, &cacheType, &expiresAtUnix, &r.priorityScore, &r.accessCount, &lastAccessedUnix, &r.sizeBytes, &metaJSON); err != nil {
			return nil, &capability.CacheError{Kind: capability.CacheIO, Message: "scan relevance row", Err: err}
		}
		r.cacheType = capability.CacheType(cacheType)
		r.expiresAt = time.Unix(expiresAtUnix, 0)
		r.lastAccessed = time.Unix(lastAccessedUnix, 0)
		result = append(result, r)
	}
	return result, nil
}

func (t *tier2) count() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, &capability.CacheError{Kind: capability.CacheIO, Message: "count entries", Err: err}
	}
	return n, nil
}

func (t *tier2) countValid(now time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM cache_entries WHERE expires_at > ?`, now.Unix()).Scan(&n); err != nil {
		return 0, &capability.CacheError{Kind: capability.CacheIO, Message: "count valid entries", Err: err}
	}
	return n, nil
}
