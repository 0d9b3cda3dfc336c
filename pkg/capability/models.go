package capability

import "time"

// ArtifactType enumerates the KnowledgeArtifact categories named in
// spec §3/§4.2.
type ArtifactType string

const (
	ArtifactSolution       ArtifactType = "solution"
	ArtifactExplanation    ArtifactType = "explanation"
	ArtifactRecommendation ArtifactType = "recommendation"
	ArtifactConfiguration  ArtifactType = "configuration"
	ArtifactProcedure      ArtifactType = "procedure"
	ArtifactCode           ArtifactType = "code"
	ArtifactDebugging      ArtifactType = "debugging"
	ArtifactImportantNote  ArtifactType = "important_note"
	ArtifactGeneral        ArtifactType = "general"
)

// ExtractionMethod distinguishes hand-authored artifacts from ones the
// Knowledge Extractor produced.
type ExtractionMethod string

const (
	ExtractionManual    ExtractionMethod = "manual"
	ExtractionAutomatic ExtractionMethod = "automatic"
)

// Project is the top-level identity; created once, never destroyed by
// the core (spec §3).
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Metadata  map[string]any
}

// Session is a continuous conversation unit belonging to exactly one
// Project (spec §3). EndedAt is nil for an open session.
type Session struct {
	ID               string
	ProjectID        string
	Name             string
	StartedAt        time.Time
	EndedAt          *time.Time
	TokenUsageCounter int
	ContextDump      string // JSON snapshot written by end_session
}

// MessageRole enumerates Message.Role.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is append-only within a Session; ordering is by CreatedAt then
// insertion order (spec §3).
type Message struct {
	ID         string
	SessionID  string
	Role       MessageRole
	Content    string
	CreatedAt  time.Time
	TokenCount int
}

// KnowledgeArtifact is the typed, tagged, deduplicated unit of durable
// knowledge the Extractor produces (spec §3, §4.2).
type KnowledgeArtifact struct {
	ID                 string
	ProjectID           string
	ArtifactType         ArtifactType
	Name                string
	Content              ArtifactContent
	Tags                 []string
	Metadata             map[string]any
	RelevanceScore       int // [1,10]
	ExtractionMethod     ExtractionMethod
	ExtractionConfidence float64 // [0,1]
	AutoGenerated        bool
	SourceMessageID      string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ArtifactContent is the structured blob inside a KnowledgeArtifact:
// original source text, the extraction analysis that produced it, and
// an optional summary (spec §3).
type ArtifactContent struct {
	OriginalText string
	Analysis     string
	Summary      string
}

// CacheType identifies which RAMR tier currently holds an entry
// (logical; see spec §4.3 on mirroring).
type CacheType string

const (
	CacheTypeMemory  CacheType = "memory"
	CacheTypeRAMR    CacheType = "ramr"
	CacheTypeDurable CacheType = "durable"
)

// CacheEntry is RAMR's stored unit (spec §3).
type CacheEntry struct {
	Key           string
	Value         []byte
	CacheType     CacheType
	ExpiresAt     time.Time
	PriorityScore int // [1,10]
	AccessCount   int
	LastAccessed  time.Time
	SizeBytes     int
	Metadata      map[string]any
}

// SectionKind enumerates ContextSection.Kind (spec §3).
type SectionKind string

const (
	SectionProject        SectionKind = "project"
	SectionSummary        SectionKind = "summary"
	SectionArtifact       SectionKind = "artifact"
	SectionRecentDialogue SectionKind = "recent_dialogue"
	SectionUserTurn       SectionKind = "user_turn"
)

// ContextSection is one ordered piece of an assembled ContextPayload.
type ContextSection struct {
	Kind       SectionKind
	Content    string
	TokenCount int
	Priority   int
}

// ContextPayload is the Orchestrator's output for one assembly (spec §3,
// §4.4). Σ TokenCount across Sections must be ≤ the caller's budget.
type ContextPayload struct {
	Sections    []ContextSection
	TotalTokens int
	Metadata    ContextMetadata
}

// ContextMetadata communicates degradation to the caller per spec §7:
// callers must see a successful payload even when parts were skipped.
type ContextMetadata struct {
	CacheHits       int
	LatencyMillis   int64
	SummarySkipped  bool
	ArtifactsPartial bool
	CacheCold       bool
}

// ProjectFacts is the read-only summary a DocumentStore returns for
// project_facts (spec §6): name, description, arbitrary metadata.
type ProjectFacts struct {
	Name        string
	Description string
	Metadata    map[string]any
}

// CacheStats is RAMR.stats()'s return value (spec §4.3).
type CacheStats struct {
	TotalEntries int
	ValidEntries int
	Tier1Size    int
	Hits         int
	Misses       int
}

// CacheHints configures RAMR.put's admission decision (spec §4.3).
type CacheHints struct {
	Type       string
	Importance int
	Priority   *int
	TTL        *time.Duration
	MemoryOnly bool
}

// Stored is RAMR.put's return value.
type Stored struct {
	Admitted bool
	Priority int
	TTL      time.Duration
	Degraded bool // true if put fell back to T2-only under backpressure
}

// ModeWeights names a LayerWeights value selecting allocation
// preferences (spec glossary's "Mode").
type ModeWeights struct {
	RecentDialogue float64
	Artifacts      float64
	Summary        float64
	Project        float64
	Headroom       float64
}

// DefaultModeWeights matches spec §4.1's default calibration.
func DefaultModeWeights() ModeWeights {
	return ModeWeights{
		RecentDialogue: 0.40,
		Artifacts:      0.30,
		Summary:        0.15,
		Project:        0.10,
		Headroom:       0.05,
	}
}
