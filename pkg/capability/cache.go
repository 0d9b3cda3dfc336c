package capability

import "context"

// Cache is the exposed RAMR API (spec §4.3, §6). Callers outside the
// core — e.g. semantic indexers — may use this directly.
type Cache interface {
	Put(ctx context.Context, key string, value []byte, hints CacheHints) (Stored, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// GetRelevant scores every non-expired T2 entry against queryText
	// and returns the top max by score descending.
	GetRelevant(ctx context.Context, queryText string, max int) ([]RelevantEntry, error)
	Invalidate(ctx context.Context, key string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
	Stats(ctx context.Context) (CacheStats, error)
	ReapExpired(ctx context.Context) (int, error)
}

// RelevantEntry is one result from Cache.GetRelevant.
type RelevantEntry struct {
	Key   string
	Value []byte
	Score float64
}

// Orchestrator is the exposed context-assembly API (spec §4.4, §6).
type Orchestrator interface {
	Assemble(ctx context.Context, sessionID, projectID, userTurn string, budgetTokens int, mode *ModeWeights) (ContextPayload, error)
	RecordTurn(ctx context.Context, sessionID, userTurn, assistantReply string) error
	EndSession(ctx context.Context, sessionID string) error
}
