package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-labs/mcae/pkg/capability"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetOrCreateProjectIsIdempotentByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p1, err := s.GetOrCreateProject(ctx, "widgets")
	require.NoError(t, err)
	p2, err := s.GetOrCreateProject(ctx, "widgets")
	require.NoError(t, err)

	assert.Equal(t, p1.ID, p2.ID)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	project, err := s.GetOrCreateProject(ctx, "widgets")
	require.NoError(t, err)

	session, err := s.StartSession(ctx, project.ID, "main")
	require.NoError(t, err)
	assert.Nil(t, session.EndedAt)

	require.NoError(t, s.EndSession(ctx, session.ID, `{"message_count":2}`, "short summary", 128))
}

func TestEndSessionUnknownSessionFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.EndSession(ctx, "does-not-exist", "{}", "", 0)
	require.Error(t, err)
	var storeErr *capability.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, capability.StoreNotFound, storeErr.Kind)
}

func TestAppendAndRecentMessagesPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	project, _ := s.GetOrCreateProject(ctx, "widgets")
	session, _ := s.StartSession(ctx, project.ID, "main")

	_, err := s.AppendMessages(ctx, session.ID, []capability.Message{
		{Role: capability.RoleUser, Content: "first"},
		{Role: capability.RoleAssistant, Content: "second"},
	})
	require.NoError(t, err)
	_, err = s.AppendMessages(ctx, session.ID, []capability.Message{
		{Role: capability.RoleUser, Content: "third"},
	})
	require.NoError(t, err)

	recent, err := s.RecentMessages(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Content)
	assert.Equal(t, "third", recent[1].Content)
}

func TestSearchArtifactsFindsByText(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	project, _ := s.GetOrCreateProject(ctx, "widgets")
	_, err := s.PutArtifact(ctx, capability.KnowledgeArtifact{
		ProjectID:        project.ID,
		ArtifactType:     capability.ArtifactSolution,
		Name:             "fix the timeout bug",
		Content:          capability.ArtifactContent{OriginalText: "set the dial timeout to 30s"},
		RelevanceScore:   7,
		ExtractionMethod: capability.ExtractionAutomatic,
	})
	require.NoError(t, err)

	results, err := s.SearchArtifacts(ctx, project.ID, "timeout", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fix the timeout bug", results[0].Name)
}

func TestFindSimilarArtifactsWindowsByDays(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	project, _ := s.GetOrCreateProject(ctx, "widgets")
	_, err := s.PutArtifact(ctx, capability.KnowledgeArtifact{
		ProjectID:        project.ID,
		ArtifactType:     capability.ArtifactSolution,
		Name:             "recent fix",
		Content:          capability.ArtifactContent{OriginalText: "applied the patch"},
		RelevanceScore:   5,
		ExtractionMethod: capability.ExtractionAutomatic,
	})
	require.NoError(t, err)

	results, err := s.FindSimilarArtifacts(ctx, project.ID, "recent fix", "applied the patch", 7)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPutArtifactUpsertsByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	project, _ := s.GetOrCreateProject(ctx, "widgets")
	stored, err := s.PutArtifact(ctx, capability.KnowledgeArtifact{
		ProjectID:        project.ID,
		ArtifactType:     capability.ArtifactSolution,
		Name:             "original name",
		Content:          capability.ArtifactContent{OriginalText: "v1"},
		RelevanceScore:   5,
		ExtractionMethod: capability.ExtractionAutomatic,
	})
	require.NoError(t, err)

	stored.Name = "updated name"
	stored.Content.OriginalText = "v2"
	updated, err := s.PutArtifact(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, updated.ID)

	results, err := s.SearchArtifacts(ctx, project.ID, "updated", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].Content.OriginalText)
}

func TestPutArtifactReusesRowForSystemConfigName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	project, _ := s.GetOrCreateProject(ctx, "widgets")
	first, err := s.PutArtifact(ctx, capability.KnowledgeArtifact{
		ProjectID:        project.ID,
		ArtifactType:     capability.ArtifactGeneral,
		Name:             "preferred_model",
		Content:          capability.ArtifactContent{OriginalText: "claude-3"},
		Tags:             []string{"system_config"},
		RelevanceScore:   5,
		ExtractionMethod: capability.ExtractionManual,
	})
	require.NoError(t, err)

	second, err := s.PutArtifact(ctx, capability.KnowledgeArtifact{
		ProjectID:        project.ID,
		ArtifactType:     capability.ArtifactGeneral,
		Name:             "preferred_model",
		Content:          capability.ArtifactContent{OriginalText: "gpt-5"},
		Tags:             []string{"system_config"},
		RelevanceScore:   5,
		ExtractionMethod: capability.ExtractionManual,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	results, err := s.SearchArtifacts(ctx, project.ID, "preferred_model", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "gpt-5", results[0].Content.OriginalText)
}

func TestProjectFactsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ProjectFacts(ctx, "missing")
	require.Error(t, err)
	var storeErr *capability.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, capability.StoreNotFound, storeErr.Kind)
}
