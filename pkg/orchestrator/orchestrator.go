// Package orchestrator implements the Context Orchestrator: it composes a
// token-budgeted ContextPayload from recent dialogue, a rolling summary,
// retrieved knowledge artifacts, and project facts, and drives the
// post-turn knowledge-extraction and cache-warming hook.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maestro-labs/mcae/pkg/accountant"
	"github.com/maestro-labs/mcae/pkg/capability"
	"github.com/maestro-labs/mcae/pkg/knowledge"
	"github.com/maestro-labs/mcae/pkg/mcaelog"
	"github.com/maestro-labs/mcae/pkg/mcaemetrics"
)

const logDomain = "orchestrator"

// Config holds the tunables named in spec §6. The zero value is not
// usable; call DefaultConfig and override individual fields.
type Config struct {
	RecentMessageCount       int
	MaxArtifacts             int
	SummaryThresholdMessages int
	SummaryTriggerTokens     int
	DefaultBudgetTokens      int
	SummaryMaxTokens         int
	SummaryTimeout           time.Duration
}

// DefaultConfig matches spec §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		RecentMessageCount:       6,
		MaxArtifacts:             5,
		SummaryThresholdMessages: 20,
		SummaryTriggerTokens:     1500,
		DefaultBudgetTokens:      4096,
		SummaryMaxTokens:         256,
		SummaryTimeout:           30 * time.Second,
	}
}

// Orchestrator is the concrete, composition-rooted implementation of
// capability.Orchestrator (spec §9: "interface abstractions owned by a
// composition root"). It holds handles to every capability the core
// consumes; none of those capabilities holds a handle back to it.
type Orchestrator struct {
	cfg       Config
	store     capability.DocumentStore
	cache     capability.Cache
	lm        capability.LanguageModel
	extractor *knowledge.Extractor
	acct      *accountant.Accountant
	recorder  mcaemetrics.Recorder

	// sessionProjects remembers the project_id a session was last
	// assembled against, since record_turn's signature (spec §6) carries
	// no project_id of its own. Populated by Assemble, consulted by
	// RecordTurn's extraction step.
	mu              sync.Mutex
	sessionProjects map[string]string
}

// New wires the four capabilities into an Orchestrator. lm may be nil if
// the caller never expects summary generation (no summary is then ever
// generated, and SummarySkipped stays false since no LM call is made).
// recorder may be nil, in which case
// observations are discarded (mcaemetrics.Nop).
func New(cfg Config, store capability.DocumentStore, cache capability.Cache, lm capability.LanguageModel, recorder mcaemetrics.Recorder) *Orchestrator {
	if recorder == nil {
		recorder = mcaemetrics.Nop()
	}
	return &Orchestrator{
		cfg:             cfg,
		store:           store,
		cache:           cache,
		lm:              lm,
		extractor:       knowledge.New(),
		acct:            accountant.New(),
		recorder:        recorder,
		sessionProjects: make(map[string]string),
	}
}

var _ capability.Orchestrator = (*Orchestrator)(nil)

// Assemble implements spec §4.4's algorithm: parallel raw-input fetch,
// budget allocation, cache-aware summary/artifact resolution, and
// priority-truncated composition.
func (o *Orchestrator) Assemble(ctx context.Context, sessionID, projectID, userTurn string, budgetTokens int, mode *capability.ModeWeights) (capability.ContextPayload, error) {
	start := time.Now()
	o.mu.Lock()
	o.sessionProjects[sessionID] = projectID
	o.mu.Unlock()

	if budgetTokens <= 0 {
		budgetTokens = o.cfg.DefaultBudgetTokens
	}
	weights := capability.DefaultModeWeights()
	if mode != nil {
		weights = *mode
	}

	var (
		recent           []capability.Message
		summary          string
		summaryCacheHit  bool
		summarySkipped   bool
		artifacts        []capability.KnowledgeArtifact
		artifactsPartial bool
		project          capability.ProjectFacts
		cacheHits        int
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		msgs, err := o.store.RecentMessages(gctx, sessionID, o.cfg.RecentMessageCount)
		if err != nil {
			return capability.NewContextError(capability.ContextStoreUnavailable, "recent_messages", err)
		}
		recent = msgs

		s, hit, skipped, err := o.resolveSummary(gctx, sessionID, recent)
		if err != nil {
			return err
		}
		summary, summaryCacheHit, summarySkipped = s, hit, skipped
		return nil
	})

	g.Go(func() error {
		list, partial, err := o.resolveArtifacts(gctx, projectID, userTurn)
		if err != nil {
			return err
		}
		artifacts, artifactsPartial = list, partial
		return nil
	})

	g.Go(func() error {
		facts, err := o.store.ProjectFacts(gctx, projectID)
		if err != nil {
			return capability.NewContextError(capability.ContextStoreUnavailable, "project_facts", err)
		}
		project = facts
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return capability.ContextPayload{}, capability.NewContextError(capability.ContextCancelled, "assemble cancelled", ctx.Err())
		}
		return capability.ContextPayload{}, err
	}

	if summaryCacheHit {
		cacheHits++
	}

	caps := o.acct.Allocate(budgetTokens, weights)

	sections, total, err := compose(o.acct, composeInput{
		budgetTokens: budgetTokens,
		caps:         caps,
		project:      project,
		summary:      summary,
		artifacts:    artifacts,
		recent:       recent,
		userTurn:     userTurn,
	})
	if err != nil {
		return capability.ContextPayload{}, err
	}

	degraded := summarySkipped || artifactsPartial
	o.recorder.ObserveAssemble(time.Since(start), degraded)

	return capability.ContextPayload{
		Sections:    sections,
		TotalTokens: total,
		Metadata: capability.ContextMetadata{
			CacheHits:        cacheHits,
			LatencyMillis:    time.Since(start).Milliseconds(),
			SummarySkipped:   summarySkipped,
			ArtifactsPartial: artifactsPartial,
			CacheCold:        !summaryCacheHit && summary == "",
		},
	}, nil
}

// resolveSummary implements spec §4.4 step 3. Returns (summary, cacheHit,
// skipped, error). skipped is true only when the LM was called and failed
// or timed out; below the threshold, or with no LM, the summary is empty
// and skipped is false.
func (o *Orchestrator) resolveSummary(ctx context.Context, sessionID string, recent []capability.Message) (string, bool, bool, error) {
	lastID := ""
	if len(recent) > 0 {
		lastID = recent[len(recent)-1].ID
	}
	key := summaryKey(sessionID, lastID)

	if value, found, err := o.cache.Get(ctx, key); err == nil && found {
		return string(value), true, false, nil
	}

	triggerTokens := 0
	for _, m := range recent {
		triggerTokens += o.acct.Estimate(m.Content)
	}
	triggered := len(recent) >= o.cfg.SummaryThresholdMessages || triggerTokens > o.cfg.SummaryTriggerTokens
	if !triggered || o.lm == nil {
		return "", false, false, nil
	}

	timeout := o.cfg.SummaryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	lmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := buildSummaryPrompt(recent)
	summary, err := o.lm.Complete(lmCtx, prompt, o.cfg.SummaryMaxTokens, 0.3)
	model := fmt.Sprintf("%T", o.lm)
	if err != nil {
		o.recorder.ObserveSummaryLMCall(model, false)
		mcaelog.Warnf(ctx, logDomain, "summary generation degraded for session %s: %v", sessionID, err)
		return "", false, true, nil
	}
	o.recorder.ObserveSummaryLMCall(model, true)

	if _, err := o.cache.Put(ctx, key, []byte(summary), capability.CacheHints{Type: "summary", Priority: intPtr(6)}); err != nil {
		mcaelog.Warnf(ctx, logDomain, "summary cache write failed for session %s: %v", sessionID, err)
	}

	return summary, false, false, nil
}

func buildSummaryPrompt(recent []capability.Message) string {
	prompt := "Summarize the following dialogue in a few sentences:\n"
	for _, m := range recent {
		prompt += string(m.Role) + ": " + m.Content + "\n"
	}
	return prompt
}

// resolveArtifacts implements spec §4.4 step 4.
func (o *Orchestrator) resolveArtifacts(ctx context.Context, projectID, userTurn string) ([]capability.KnowledgeArtifact, bool, error) {
	key := artifactsKey(projectID, userTurn)

	if value, found, err := o.cache.Get(ctx, key); err == nil && found {
		artifacts, decodeErr := decodeArtifactRefs(value)
		if decodeErr == nil {
			return artifacts, false, nil
		}
	}

	max := o.cfg.MaxArtifacts
	if max <= 0 {
		max = 5
	}
	results, err := o.store.SearchArtifacts(ctx, projectID, userTurn, max)
	if err != nil {
		if storeErr, ok := capability.AsStoreError(err); ok && storeErr.Retryable() {
			mcaelog.Warnf(ctx, logDomain, "artifact search degraded for project %s: %v", projectID, err)
			return nil, true, nil
		}
		return nil, false, capability.NewContextError(capability.ContextStoreUnavailable, "search_artifacts", err)
	}

	ttl := 30 * time.Minute
	if encoded, encodeErr := encodeArtifactRefs(results); encodeErr == nil {
		if _, err := o.cache.Put(ctx, key, encoded, capability.CacheHints{Type: "retrieval", TTL: &ttl}); err != nil {
			mcaelog.Warnf(ctx, logDomain, "artifact cache write failed for project %s: %v", projectID, err)
		}
	}

	return results, false, nil
}

// RecordTurn implements spec §4.4's post-turn hook.
func (o *Orchestrator) RecordTurn(ctx context.Context, sessionID, userTurn, assistantReply string) error {
	now := time.Now()
	_, err := o.store.AppendMessages(ctx, sessionID, []capability.Message{
		{SessionID: sessionID, Role: capability.RoleUser, Content: userTurn, CreatedAt: now},
		{SessionID: sessionID, Role: capability.RoleAssistant, Content: assistantReply, CreatedAt: now.Add(time.Nanosecond)},
	})
	if err != nil {
		return capability.NewContextError(capability.ContextStoreUnavailable, "append_messages", err)
	}

	if ctx.Err() != nil {
		return nil
	}

	o.extractAndCache(ctx, sessionID, userTurn, assistantReply)
	return nil
}

// extractAndCache runs the Knowledge Extractor and, on a non-duplicate
// extraction, persists and cache-warms the artifact. All failures here are
// swallowed and logged per spec §4.4's failure semantics.
func (o *Orchestrator) extractAndCache(ctx context.Context, sessionID, userTurn, assistantReply string) {
	result := o.extractor.Analyze(assistantReply, userTurn, "")
	o.recorder.ObserveExtractionScored(string(result.ArtifactType), result.ShouldExtract)
	if !result.ShouldExtract {
		return
	}

	session, err := o.sessionProject(ctx, sessionID)
	if err != nil {
		mcaelog.Warnf(ctx, logDomain, "record_turn: could not resolve project for session %s: %v", sessionID, err)
		return
	}

	existing, err := o.store.FindSimilarArtifacts(ctx, session, result.SuggestedTitle, firstNChars(assistantReply, 100), 7)
	if err != nil {
		mcaelog.Warnf(ctx, logDomain, "record_turn: dedup lookup failed: %v", err)
	} else if knowledge.IsDuplicate(result.SuggestedTitle, assistantReply, existing) {
		return
	}

	artifact := capability.KnowledgeArtifact{
		ProjectID:            session,
		ArtifactType:         result.ArtifactType,
		Name:                 result.SuggestedTitle,
		Content:              capability.ArtifactContent{OriginalText: assistantReply},
		Tags:                 result.Tags,
		RelevanceScore:       relevanceFromScore(result.Score),
		ExtractionMethod:     capability.ExtractionAutomatic,
		ExtractionConfidence: result.Confidence,
		AutoGenerated:        true,
	}

	stored, err := o.store.PutArtifact(ctx, artifact)
	if err != nil {
		mcaelog.Warnf(ctx, logDomain, "record_turn: put_artifact failed: %v", err)
		return
	}

	priority := stored.RelevanceScore
	if _, err := o.cache.Put(ctx, artifactKey(session, stored.ID), []byte(stored.Content.OriginalText),
		capability.CacheHints{Type: string(stored.ArtifactType), Priority: &priority}); err != nil {
		mcaelog.Warnf(ctx, logDomain, "record_turn: cache warm failed: %v", err)
	}

	if err := o.cache.InvalidatePrefix(ctx, artifactsPrefix(session)); err != nil {
		mcaelog.Warnf(ctx, logDomain, "record_turn: artifact prefix invalidation failed: %v", err)
	}
}

// sessionProject resolves a session's project id from the mapping
// recorded by the most recent Assemble call against that session. A
// record_turn invoked without a preceding assemble in the same session
// has no project to attribute the artifact to and is treated as a
// swallowed extraction failure, consistent with spec §4.4's "extraction
// failures are swallowed and logged" rule.
func (o *Orchestrator) sessionProject(ctx context.Context, sessionID string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	projectID, ok := o.sessionProjects[sessionID]
	if !ok {
		return "", fmt.Errorf("no project known for session %s: assemble has not run yet", sessionID)
	}
	return projectID, nil
}

// EndSession closes the session and stores a context_dump snapshot.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	recent, err := o.store.RecentMessages(ctx, sessionID, 0)
	if err != nil {
		return capability.NewContextError(capability.ContextStoreUnavailable, "recent_messages", err)
	}
	dump := buildContextDump(recent)
	tokensUsed := 0
	for _, m := range recent {
		tokensUsed += o.acct.Estimate(m.Content)
	}
	if err := o.store.EndSession(ctx, sessionID, dump, "", tokensUsed); err != nil {
		return capability.NewContextError(capability.ContextStoreUnavailable, "end_session", err)
	}
	return nil
}

func buildContextDump(recent []capability.Message) string {
	dump := "{\"message_count\":" + strconv.Itoa(len(recent)) + "}"
	return dump
}

func relevanceFromScore(score float64) int {
	scaled := int(score)
	if scaled < 1 {
		return 1
	}
	if scaled > 10 {
		return 10
	}
	return scaled
}

func firstNChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func intPtr(v int) *int { return &v }
