package ramr

import (
	"database/sql"
	"fmt"
)

// currentSchemaVersion follows the teacher's versioned-migration pattern
// (pkg/persistence/schema.go's CurrentSchemaVersion + runMigration
// switch), generalized to RAMR's single cache_entries table.
const currentSchemaVersion = 1

// initializeSchema creates the cache_entries table and its two named
// indexes (spec §6 "Persisted state layout": an index on expires_at for
// cheap reaping, and an index on (priority_score desc, last_accessed
// desc) for eviction scans) if they do not already exist, then records
// the schema version.
func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			cache_type TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			priority_score INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed INTEGER NOT NULL,
			size_bytes INTEGER NOT NULL,
			metadata TEXT
		)
	`); err != nil {
		return fmt.Errorf("create cache_entries: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at)`); err != nil {
		return fmt.Errorf("create expires_at index: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_entries_priority_recency ON cache_entries(priority_score DESC, last_accessed DESC)`); err != nil {
		return fmt.Errorf("create priority/recency index: %w", err)
	}

	if _, err := db.Exec(`
		INSERT INTO schema_meta (id, version) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version
	`, currentSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return nil
}
