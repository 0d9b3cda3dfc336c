package capability

import "context"

// DocumentStore is the consumed capability spec §6 describes: typed CRUD
// on projects, sessions, messages, artifacts. The core never sees the
// SQL dialect behind it. All methods are fallible and return typed
// *StoreError values.
type DocumentStore interface {
	GetOrCreateProject(ctx context.Context, name string) (Project, error)
	StartSession(ctx context.Context, projectID, name string) (Session, error)
	EndSession(ctx context.Context, sessionID, contextDump, summary string, tokensUsed int) error
	AppendMessages(ctx context.Context, sessionID string, messages []Message) ([]string, error)
	// RecentMessages returns the n most recent messages, most-recent last.
	RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error)
	// SearchArtifacts must return results descending by relevance; the
	// ranking strategy is the store's own concern.
	SearchArtifacts(ctx context.Context, projectID, query string, max int) ([]KnowledgeArtifact, error)
	// FindSimilarArtifacts supports the Extractor's dedup check (spec §4.2).
	FindSimilarArtifacts(ctx context.Context, projectID, title, contentPrefix string, window int) ([]KnowledgeArtifact, error)
	// PutArtifact returns the stored version with ID and CreatedAt populated.
	PutArtifact(ctx context.Context, artifact KnowledgeArtifact) (KnowledgeArtifact, error)
	ProjectFacts(ctx context.Context, projectID string) (ProjectFacts, error)
}
