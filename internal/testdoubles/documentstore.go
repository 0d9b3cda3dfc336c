package testdoubles

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// DocumentStore is an in-memory capability.DocumentStore for tests.
type DocumentStore struct {
	mu        sync.Mutex
	projects  map[string]capability.Project
	sessions  map[string]capability.Session
	messages  map[string][]capability.Message // by session id
	artifacts map[string]capability.KnowledgeArtifact
	facts     map[string]capability.ProjectFacts
	now       func() time.Time
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		projects:  map[string]capability.Project{},
		sessions:  map[string]capability.Session{},
		messages:  map[string][]capability.Message{},
		artifacts: map[string]capability.KnowledgeArtifact{},
		facts:     map[string]capability.ProjectFacts{},
		now:       time.Now,
	}
}

func (s *DocumentStore) SetNow(fn func() time.Time) { s.now = fn }

func (s *DocumentStore) GetOrCreateProject(ctx context.Context, name string) (capability.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.Name == name {
			return p, nil
		}
	}
	p := capability.Project{ID: uuid.NewString(), Name: name, CreatedAt: s.now(), Metadata: map[string]any{}}
	s.projects[p.ID] = p
	s.facts[p.ID] = capability.ProjectFacts{Name: name}
	return p, nil
}

func (s *DocumentStore) StartSession(ctx context.Context, projectID, name string) (capability.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := capability.Session{ID: uuid.NewString(), ProjectID: projectID, Name: name, StartedAt: s.now()}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *DocumentStore) EndSession(ctx context.Context, sessionID, contextDump, summary string, tokensUsed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return &capability.StoreError{Kind: capability.StoreNotFound, Message: "session not found"}
	}
	now := s.now()
	sess.EndedAt = &now
	sess.ContextDump = contextDump
	sess.TokenUsageCounter = tokensUsed
	s.sessions[sessionID] = sess
	return nil
}

func (s *DocumentStore) AppendMessages(ctx context.Context, sessionID string, messages []capability.Message) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now()
		}
		s.messages[sessionID] = append(s.messages[sessionID], m)
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *DocumentStore) RecentMessages(ctx context.Context, sessionID string, n int) ([]capability.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[sessionID]
	if n <= 0 || n >= len(all) {
		out := make([]capability.Message, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]capability.Message, n)
	copy(out, all[len(all)-n:])
	return out, nil
}

func (s *DocumentStore) SearchArtifacts(ctx context.Context, projectID, query string, max int) ([]capability.KnowledgeArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []capability.KnowledgeArtifact
	lowerQuery := strings.ToLower(query)
	for _, a := range s.artifacts {
		if a.ProjectID != projectID {
			continue
		}
		if lowerQuery == "" || strings.Contains(strings.ToLower(a.Content.OriginalText), lowerQuery) || strings.Contains(strings.ToLower(a.Name), lowerQuery) {
			results = append(results, a)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].RelevanceScore > results[j].RelevanceScore })
	if max > 0 && len(results) > max {
		results = results[:max]
	}
	return results, nil
}

func (s *DocumentStore) FindSimilarArtifacts(ctx context.Context, projectID, title, contentPrefix string, window int) ([]capability.KnowledgeArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().AddDate(0, 0, -window)
	var results []capability.KnowledgeArtifact
	for _, a := range s.artifacts {
		if a.ProjectID == projectID && a.CreatedAt.After(cutoff) {
			results = append(results, a)
		}
	}
	return results, nil
}

func (s *DocumentStore) PutArtifact(ctx context.Context, artifact capability.KnowledgeArtifact) (capability.KnowledgeArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = s.now()
	}
	artifact.UpdatedAt = s.now()
	s.artifacts[artifact.ID] = artifact
	return artifact, nil
}

func (s *DocumentStore) ProjectFacts(ctx context.Context, projectID string) (capability.ProjectFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	facts, ok := s.facts[projectID]
	if !ok {
		return capability.ProjectFacts{}, &capability.StoreError{Kind: capability.StoreNotFound, Message: "project not found"}
	}
	return facts, nil
}

func (s *DocumentStore) ArtifactCount(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.artifacts {
		if a.ProjectID == projectID {
			n++
		}
	}
	return n
}

var _ capability.DocumentStore = (*DocumentStore)(nil)
