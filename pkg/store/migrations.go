package store

import (
	"database/sql"
	"fmt"
)

// currentSchemaVersion follows the teacher's versioned-migration pattern
// (pkg/persistence/schema.go's CurrentSchemaVersion + numbered
// migrateToVersionN functions), generalized to MCAE's own tables:
// projects, sessions, messages, knowledge_artifacts.
const currentSchemaVersion = 2

// initializeSchema brings db up to currentSchemaVersion, creating the
// schema from scratch on a fresh database or running migrations in
// order on an existing one.
func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	from, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if from == 0 {
		if err := createSchema(db); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return setSchemaVersion(db, currentSchemaVersion)
	}

	for v := from + 1; v <= currentSchemaVersion; v++ {
		if err := runMigration(db, v); err != nil {
			return fmt.Errorf("migrate to version %d: %w", v, err)
		}
		if err := setSchemaVersion(db, v); err != nil {
			return fmt.Errorf("record version %d: %w", v, err)
		}
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(db *sql.DB, version int) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, strftime('%s','now'))`, version)
	return err
}

// createSchema builds the version-2 schema directly; used for fresh
// databases so new deployments skip the migration chain.
func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			metadata   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id                  TEXT PRIMARY KEY,
			project_id          TEXT NOT NULL REFERENCES projects(id),
			name                TEXT NOT NULL,
			started_at          INTEGER NOT NULL,
			ended_at            INTEGER,
			token_usage_counter INTEGER NOT NULL DEFAULT 0,
			context_dump        TEXT,
			summary             TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL REFERENCES sessions(id),
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			seq         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS knowledge_artifacts (
			id                    TEXT PRIMARY KEY,
			project_id            TEXT NOT NULL REFERENCES projects(id),
			artifact_type         TEXT NOT NULL,
			name                  TEXT NOT NULL,
			original_text         TEXT NOT NULL,
			analysis              TEXT,
			summary               TEXT,
			tags                  TEXT,
			metadata              TEXT,
			relevance_score       INTEGER NOT NULL DEFAULT 5,
			extraction_method     TEXT NOT NULL,
			extraction_confidence REAL NOT NULL DEFAULT 0,
			auto_generated        INTEGER NOT NULL DEFAULT 0,
			source_message_id     TEXT,
			created_at            INTEGER NOT NULL,
			updated_at            INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_project ON knowledge_artifacts(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_project_created ON knowledge_artifacts(project_id, created_at)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_artifacts_fts USING fts5(
			name, original_text, content='knowledge_artifacts', content_rowid='rowid'
		)`,
		`CREATE TRIGGER IF NOT EXISTS knowledge_artifacts_ai AFTER INSERT ON knowledge_artifacts BEGIN
			INSERT INTO knowledge_artifacts_fts(rowid, name, original_text) VALUES (new.rowid, new.name, new.original_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS knowledge_artifacts_ad AFTER DELETE ON knowledge_artifacts BEGIN
			INSERT INTO knowledge_artifacts_fts(knowledge_artifacts_fts, rowid, name, original_text) VALUES ('delete', old.rowid, old.name, old.original_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS knowledge_artifacts_au AFTER UPDATE ON knowledge_artifacts BEGIN
			INSERT INTO knowledge_artifacts_fts(knowledge_artifacts_fts, rowid, name, original_text) VALUES ('delete', old.rowid, old.name, old.original_text);
			INSERT INTO knowledge_artifacts_fts(rowid, name, original_text) VALUES (new.rowid, new.name, new.original_text);
		END`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// runMigration applies exactly the delta for version v to a database
// that is already at v-1. Version 1 is folded into createSchema for
// fresh databases, so initializeSchema never calls this with v == 1; a
// version-1 database created before the FTS index existed runs only the
// version-2 step.
func runMigration(db *sql.DB, v int) error {
	switch v {
	case 1:
		return migrateToVersion1(db)
	case 2:
		return migrateToVersion2(db)
	default:
		return fmt.Errorf("unknown schema version %d", v)
	}
}

func migrateToVersion1(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			metadata   TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id                  TEXT PRIMARY KEY,
			project_id          TEXT NOT NULL REFERENCES projects(id),
			name                TEXT NOT NULL,
			started_at          INTEGER NOT NULL,
			ended_at            INTEGER,
			token_usage_counter INTEGER NOT NULL DEFAULT 0,
			context_dump        TEXT,
			summary             TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL REFERENCES sessions(id),
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			seq         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS knowledge_artifacts (
			id                    TEXT PRIMARY KEY,
			project_id            TEXT NOT NULL REFERENCES projects(id),
			artifact_type         TEXT NOT NULL,
			name                  TEXT NOT NULL,
			original_text         TEXT NOT NULL,
			analysis              TEXT,
			summary               TEXT,
			tags                  TEXT,
			metadata              TEXT,
			relevance_score       INTEGER NOT NULL DEFAULT 5,
			extraction_method     TEXT NOT NULL,
			extraction_confidence REAL NOT NULL DEFAULT 0,
			auto_generated        INTEGER NOT NULL DEFAULT 0,
			source_message_id     TEXT,
			created_at            INTEGER NOT NULL,
			updated_at            INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_project ON knowledge_artifacts(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_project_created ON knowledge_artifacts(project_id, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// migrateToVersion2 adds the full-text index used by SearchArtifacts,
// backfilling it from whatever rows version 1 already collected.
func migrateToVersion2(db *sql.DB) error {
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_artifacts_fts USING fts5(
			name, original_text, content='knowledge_artifacts', content_rowid='rowid'
		)`,
		`CREATE TRIGGER IF NOT EXISTS knowledge_artifacts_ai AFTER INSERT ON knowledge_artifacts BEGIN
			INSERT INTO knowledge_artifacts_fts(rowid, name, original_text) VALUES (new.rowid, new.name, new.original_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS knowledge_artifacts_ad AFTER DELETE ON knowledge_artifacts BEGIN
			INSERT INTO knowledge_artifacts_fts(knowledge_artifacts_fts, rowid, name, original_text) VALUES ('delete', old.rowid, old.name, old.original_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS knowledge_artifacts_au AFTER UPDATE ON knowledge_artifacts BEGIN
			INSERT INTO knowledge_artifacts_fts(knowledge_artifacts_fts, rowid, name, original_text) VALUES ('delete', old.rowid, old.name, old.original_text);
			INSERT INTO knowledge_artifacts_fts(rowid, name, original_text) VALUES (new.rowid, new.name, new.original_text);
		END`,
		`INSERT INTO knowledge_artifacts_fts(rowid, name, original_text) SELECT rowid, name, original_text FROM knowledge_artifacts`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
