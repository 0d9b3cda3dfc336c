package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-labs/mcae/internal/testdoubles"
	"github.com/maestro-labs/mcae/pkg/capability"
	"github.com/maestro-labs/mcae/pkg/ramr"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *testdoubles.DocumentStore, *testdoubles.LanguageModel, *ramr.RAMR) {
	t.Helper()
	store := testdoubles.NewDocumentStore()
	lm := testdoubles.NewLanguageModel()
	cache, err := ramr.New(ramr.Config{MemoryCapacity: 50, EmbeddedCapacityEntries: 1000, EmbeddedDBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	orch := New(DefaultConfig(), store, cache, lm, nil)
	return orch, store, lm, cache
}

func TestAssembleColdCacheTrivialTurn(t *testing.T) {
	ctx := context.Background()
	orch, store, _, _ := newTestOrchestrator(t)

	project, err := store.GetOrCreateProject(ctx, "proj")
	require.NoError(t, err)
	session, err := store.StartSession(ctx, project.ID, "s1")
	require.NoError(t, err)

	payload, err := orch.Assemble(ctx, session.ID, project.ID, "hello", 4096, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, payload.TotalTokens, 4096)
	require.NotEmpty(t, payload.Sections)
	assert.Equal(t, capability.SectionUserTurn, payload.Sections[len(payload.Sections)-1].Kind)
	assert.False(t, payload.Metadata.SummarySkipped)
}

func TestAssembleSummaryGeneratesOnceThenCached(t *testing.T) {
	ctx := context.Background()
	orch, store, lm, _ := newTestOrchestrator(t)
	// Fetch all 25 messages so the 20-message summary threshold is reached.
	orch.cfg.RecentMessageCount = 25

	project, _ := store.GetOrCreateProject(ctx, "proj")
	session, _ := store.StartSession(ctx, project.ID, "s1")

	var msgs []capability.Message
	for i := 0; i < 25; i++ {
		msgs = append(msgs, capability.Message{Role: capability.RoleUser, Content: "a message with some reasonable length content here"})
	}
	_, err := store.AppendMessages(ctx, session.ID, msgs)
	require.NoError(t, err)

	_, err = orch.Assemble(ctx, session.ID, project.ID, "continue", 4096, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, lm.CallCount())

	_, err = orch.Assemble(ctx, session.ID, project.ID, "continue", 4096, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, lm.CallCount())
}

func TestAssembleUserTurnTooLargeFails(t *testing.T) {
	ctx := context.Background()
	orch, store, _, _ := newTestOrchestrator(t)

	project, _ := store.GetOrCreateProject(ctx, "proj")
	session, _ := store.StartSession(ctx, project.ID, "s1")

	huge := make([]byte, 10000)
	for i := range huge {
		huge[i] = 'x'
	}
	_, err := orch.Assemble(ctx, session.ID, project.ID, string(huge), 100, nil)
	require.Error(t, err)
	var ctxErr *capability.ContextError
	require.ErrorAs(t, err, &ctxErr)
	assert.Equal(t, capability.ContextUserTurnTooLarge, ctxErr.Kind)
}

func TestRecordTurnPersistsMessagesAndExtractsArtifact(t *testing.T) {
	ctx := context.Background()
	orch, store, _, _ := newTestOrchestrator(t)

	project, _ := store.GetOrCreateProject(ctx, "proj")
	session, _ := store.StartSession(ctx, project.ID, "s1")

	_, err := orch.Assemble(ctx, session.ID, project.ID, "how do I fix this", 4096, nil)
	require.NoError(t, err)

	reply := "Here's the fix: set X=1 in your config file. ```go\nconst X = 1\n``` This solution resolves the error you saw."
	err = orch.RecordTurn(ctx, session.ID, "how do I fix this", reply)
	require.NoError(t, err)

	assert.Equal(t, 1, store.ArtifactCount(project.ID))
}

func TestRecordTurnDuplicateSuppressed(t *testing.T) {
	ctx := context.Background()
	orch, store, _, _ := newTestOrchestrator(t)

	project, _ := store.GetOrCreateProject(ctx, "proj")
	session, _ := store.StartSession(ctx, project.ID, "s1")
	_, err := orch.Assemble(ctx, session.ID, project.ID, "how do I fix this", 4096, nil)
	require.NoError(t, err)

	reply := "Here's the fix: set X=1. Solution works and resolves the error."

	require.NoError(t, orch.RecordTurn(ctx, session.ID, "turn one", reply))
	require.NoError(t, orch.RecordTurn(ctx, session.ID, "turn two", reply))

	assert.Equal(t, 1, store.ArtifactCount(project.ID))
}

func TestEndSessionPersistsContextDump(t *testing.T) {
	ctx := context.Background()
	orch, store, _, _ := newTestOrchestrator(t)

	project, _ := store.GetOrCreateProject(ctx, "proj")
	session, _ := store.StartSession(ctx, project.ID, "s1")
	_, err := store.AppendMessages(ctx, session.ID, []capability.Message{
		{Role: capability.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	require.NoError(t, orch.EndSession(ctx, session.ID))
}
