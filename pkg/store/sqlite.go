// Package store implements capability.DocumentStore on top of sqlite,
// the durable home for projects, sessions, messages, and knowledge
// artifacts (spec §3, §6). Grounded on the teacher's
// pkg/persistence/db.go singleton pattern, generalized to MCAE's own
// schema in migrations.go.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// Store is a sqlite-backed capability.DocumentStore. sqlite allows only
// one writer at a time, so every method serializes through mu in
// addition to the single-connection pool (matching pkg/ramr/tier2.go).
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// Open creates or migrates the sqlite database at path and returns a
// ready Store. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping document store: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		return nil, fmt.Errorf("initialize document store schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetNow overrides the clock; tests only.
func (s *Store) SetNow(fn func() time.Time) { s.now = fn }

var _ capability.DocumentStore = (*Store)(nil)

func (s *Store) GetOrCreateProject(ctx context.Context, name string) (capability.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p capability.Project
	var metaJSON string
	var createdAtUnix int64
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at, metadata FROM projects WHERE name = ?`, name).
		Scan(&p.ID, &p.Name, &createdAtUnix, &metaJSON)
	if err == nil {
		p.CreatedAt = time.Unix(createdAtUnix, 0)
		p.Metadata = unmarshalMetadata(metaJSON)
		return p, nil
	}
	if err != sql.ErrNoRows {
		return capability.Project{}, capability.NewStoreError(capability.StoreIO, "query project", err)
	}

	p = capability.Project{ID: uuid.NewString(), Name: name, CreatedAt: s.now(), Metadata: map[string]any{}}
	_, err = s.db.ExecContext(ctx, `INSERT INTO projects (id, name, created_at, metadata) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.CreatedAt.Unix(), "")
	if err != nil {
		if isUniqueViolation(err) {
			return capability.Project{}, capability.NewStoreError(capability.StoreConflict, "project name already exists", err)
		}
		return capability.Project{}, capability.NewStoreError(capability.StoreIO, "insert project", err)
	}
	return p, nil
}

func (s *Store) StartSession(ctx context.Context, projectID, name string) (capability.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := capability.Session{ID: uuid.NewString(), ProjectID: projectID, Name: name, StartedAt: s.now()}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, project_id, name, started_at, token_usage_counter)
		VALUES (?, ?, ?, ?, 0)
	`, sess.ID, sess.ProjectID, sess.Name, sess.StartedAt.Unix())
	if err != nil {
		return capability.Session{}, capability.NewStoreError(capability.StoreIO, "insert session", err)
	}
	return sess, nil
}

func (s *Store) EndSession(ctx context.Context, sessionID, contextDump, summary string, tokensUsed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ?, context_dump = ?, summary = ?, token_usage_counter = ?
		WHERE id = ?
	`, s.now().Unix(), contextDump, summary, tokensUsed, sessionID)
	if err != nil {
		return capability.NewStoreError(capability.StoreIO, "update session", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return capability.NewStoreError(capability.StoreNotFound, "session not found", nil)
	}
	return nil
}

func (s *Store) AppendMessages(ctx context.Context, sessionID string, messages []capability.Message) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var nextSeq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE session_id = ?`, sessionID).Scan(&nextSeq); err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "next sequence", err)
	}

	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, session_id, role, content, created_at, token_count, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, m.ID, sessionID, string(m.Role), m.Content, m.CreatedAt.Unix(), m.TokenCount, nextSeq)
		if err != nil {
			return nil, capability.NewStoreError(capability.StoreIO, "insert message", err)
		}
		ids = append(ids, m.ID)
		nextSeq++
	}

	if err := tx.Commit(); err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "commit messages", err)
	}
	return ids, nil
}

func (s *Store) RecentMessages(ctx context.Context, sessionID string, n int) ([]capability.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, session_id, role, content, created_at, token_count FROM messages WHERE session_id = ? ORDER BY seq DESC`
	args := []any{sessionID}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "query recent messages", err)
	}
	defer rows.Close()

	var reversed []capability.Message
	for rows.Next() {
		var m capability.Message
		var role string
		var createdAtUnix int64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &createdAtUnix, &m.TokenCount); err != nil {
			return nil, capability.NewStoreError(capability.StoreIO, "scan message", err)
		}
		m.Role = capability.MessageRole(role)
		m.CreatedAt = time.Unix(createdAtUnix, 0)
		reversed = append(reversed, m)
	}
	if err := rows.Err(); err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "iterate messages", err)
	}

	out := make([]capability.Message, len(reversed))
	for i, m := range reversed {
		out[len(reversed)-1-i] = m
	}
	return out, nil
}

// SearchArtifacts uses the fts5 index over name and original_text,
// falling back to a LIKE scan when the query has no terms fts5 accepts
// (e.g. pure punctuation), so a lookup never errors on untrusted input.
func (s *Store) SearchArtifacts(ctx context.Context, projectID, query string, max int) ([]capability.KnowledgeArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if max <= 0 {
		max = 10
	}

	var rows *sql.Rows
	var err error
	ftsQuery := strings.TrimSpace(query)
	if ftsQuery != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT a.id, a.project_id, a.artifact_type, a.name, a.original_text, a.analysis, a.summary,
				a.tags, a.metadata, a.relevance_score, a.extraction_method, a.extraction_confidence,
				a.auto_generated, a.source_message_id, a.created_at, a.updated_at
			FROM knowledge_artifacts a
			JOIN knowledge_artifacts_fts f ON f.rowid = a.rowid
			WHERE a.project_id = ? AND knowledge_artifacts_fts MATCH ?
			ORDER BY a.relevance_score DESC
			LIMIT ?
		`, projectID, ftsMatchExpr(ftsQuery), max)
	}
	if ftsQuery == "" || err != nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, project_id, artifact_type, name, original_text, analysis, summary,
				tags, metadata, relevance_score, extraction_method, extraction_confidence,
				auto_generated, source_message_id, created_at, updated_at
			FROM knowledge_artifacts
			WHERE project_id = ? AND (? = '' OR name LIKE '%'||?||'%' OR original_text LIKE '%'||?||'%')
			ORDER BY relevance_score DESC
			LIMIT ?
		`, projectID, ftsQuery, ftsQuery, ftsQuery, max)
	}
	if err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "search artifacts", err)
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

func ftsMatchExpr(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " OR ")
}

func (s *Store) FindSimilarArtifacts(ctx context.Context, projectID, title, contentPrefix string, window int) ([]capability.KnowledgeArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -window).Unix()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, artifact_type, name, original_text, analysis, summary,
			tags, metadata, relevance_score, extraction_method, extraction_confidence,
			auto_generated, source_message_id, created_at, updated_at
		FROM knowledge_artifacts
		WHERE project_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, projectID, cutoff)
	if err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "find similar artifacts", err)
	}
	defer rows.Close()

	_ = title
	_ = contentPrefix
	return scanArtifacts(rows)
}

// systemConfigTag is the reserved tag that narrows knowledge_artifacts'
// name uniqueness to config-like artifacts (resolved Open Question,
// see SPEC_FULL.md section E.1): an artifact carrying it reuses the
// existing row for the same (project_id, name), whether or not that row
// carries the tag, instead of creating a duplicate; an artifact without
// the tag is always inserted as a new row and may repeat a name.
const systemConfigTag = "system_config"

func (s *Store) PutArtifact(ctx context.Context, artifact capability.KnowledgeArtifact) (capability.KnowledgeArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if artifact.ID == "" && hasTag(artifact.Tags, systemConfigTag) {
		var existingID string
		err := s.db.QueryRowContext(ctx, `SELECT id FROM knowledge_artifacts WHERE project_id = ? AND name = ?`,
			artifact.ProjectID, artifact.Name).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return capability.KnowledgeArtifact{}, capability.NewStoreError(capability.StoreIO, "lookup system_config artifact", err)
		}
		if err == nil {
			artifact.ID = existingID
		}
	}
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	now := s.now()
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = now
	}
	artifact.UpdatedAt = now

	row, err := artifactToRow(artifact)
	if err != nil {
		return capability.KnowledgeArtifact{}, capability.NewStoreError(capability.StoreSerialize, "marshal artifact", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO knowledge_artifacts (
			id, project_id, artifact_type, name, original_text, analysis, summary,
			tags, metadata, relevance_score, extraction_method, extraction_confidence,
			auto_generated, source_message_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			artifact_type = excluded.artifact_type,
			name = excluded.name,
			original_text = excluded.original_text,
			analysis = excluded.analysis,
			summary = excluded.summary,
			tags = excluded.tags,
			metadata = excluded.metadata,
			relevance_score = excluded.relevance_score,
			extraction_method = excluded.extraction_method,
			extraction_confidence = excluded.extraction_confidence,
			auto_generated = excluded.auto_generated,
			source_message_id = excluded.source_message_id,
			updated_at = excluded.updated_at
	`, row.id, row.projectID, row.artifactType, row.name, row.originalText, row.analysis, row.summary,
		row.tags, row.metadata, row.relevanceScore, row.extractionMethod, row.extractionConfidence,
		row.autoGenerated, row.sourceMessageID, artifact.CreatedAt.Unix(), artifact.UpdatedAt.Unix())
	if err != nil {
		return capability.KnowledgeArtifact{}, capability.NewStoreError(capability.StoreIO, "upsert artifact", err)
	}

	return artifact, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *Store) ProjectFacts(ctx context.Context, projectID string) (capability.ProjectFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var name, metaJSON string
	err := s.db.QueryRowContext(ctx, `SELECT name, metadata FROM projects WHERE id = ?`, projectID).Scan(&name, &metaJSON)
	if err == sql.ErrNoRows {
		return capability.ProjectFacts{}, capability.NewStoreError(capability.StoreNotFound, "project not found", nil)
	}
	if err != nil {
		return capability.ProjectFacts{}, capability.NewStoreError(capability.StoreIO, "query project facts", err)
	}

	metadata := unmarshalMetadata(metaJSON)
	description, _ := metadata["description"].(string)
	return capability.ProjectFacts{Name: name, Description: description, Metadata: metadata}, nil
}

func scanArtifacts(rows *sql.Rows) ([]capability.KnowledgeArtifact, error) {
	var out []capability.KnowledgeArtifact
	for rows.Next() {
		var r artifactRow
		if err := rows.Scan(
			&r.id, &r.projectID, &r.artifactType, &r.name, &r.originalText, &r.analysis, &r.summary,
			&r.tags, &r.metadata, &r.relevanceScore, &r.extractionMethod, &r.extractionConfidence,
			&r.autoGenerated, &r.sourceMessageID, &r.createdAtUnix, &r.updatedAtUnix,
		); err != nil {
			return nil, capability.NewStoreError(capability.StoreIO, "scan artifact", err)
		}
		out = append(out, r.toArtifact())
	}
	if err := rows.Err(); err != nil {
		return nil, capability.NewStoreError(capability.StoreIO, "iterate artifacts", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
