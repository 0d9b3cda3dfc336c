package orchestrator

import (
	"sort"
	"strings"

	"github.com/maestro-labs/mcae/pkg/accountant"
	"github.com/maestro-labs/mcae/pkg/capability"
)

// minUserTurnFloor is the slack the user turn must always fit within,
// even at the expense of every other layer (spec §4.4 step 5).
const minUserTurnFloor = accountant.MinPerLayer

// composeInput carries everything compose needs to build a ContextPayload,
// already fetched and cache-resolved by Orchestrator.Assemble.
type composeInput struct {
	budgetTokens int
	caps         map[capability.SectionKind]int
	project      capability.ProjectFacts
	summary      string // empty means "no summary layer"
	artifacts    []capability.KnowledgeArtifact
	recent       []capability.Message
	userTurn     string
}

// compose builds sections in the fixed order project, summary, artifacts,
// recent_dialogue, user_turn (spec §4.4 step 5), truncating each to its layerCap
// by dropping lowest-priority items first. The user turn is always
// included verbatim; if it alone cannot fit, assembly fails.
func compose(acct *accountant.Accountant, in composeInput) ([]capability.ContextSection, int, error) {
	userTurnTokens := acct.Estimate(in.userTurn)
	if userTurnTokens > in.budgetTokens-minUserTurnFloor {
		return nil, 0, capability.NewContextError(capability.ContextUserTurnTooLarge,
			"user turn exceeds available budget", nil)
	}

	var sections []capability.ContextSection
	total := 0
	remaining := in.budgetTokens - userTurnTokens

	if layerCap, ok := in.caps[capability.SectionProject]; ok {
		section, used := composeProject(acct, in.project, minInt(layerCap, remaining))
		if used > 0 {
			sections = append(sections, section)
			total += used
			remaining -= used
		}
	}

	if in.summary != "" {
		layerCap := in.caps[capability.SectionSummary]
		section, used := composeSummary(acct, in.summary, minInt(layerCap, remaining))
		if used > 0 {
			sections = append(sections, section)
			total += used
			remaining -= used
		}
	}

	if layerCap, ok := in.caps[capability.SectionArtifact]; ok {
		sectionList, used := composeArtifacts(acct, in.artifacts, minInt(layerCap, remaining))
		sections = append(sections, sectionList...)
		total += used
		remaining -= used
	}

	if layerCap, ok := in.caps[capability.SectionRecentDialogue]; ok {
		section, used := composeRecent(acct, in.recent, minInt(layerCap, remaining))
		if used > 0 {
			sections = append(sections, section)
			total += used
			remaining -= used
		}
	}

	sections = append(sections, capability.ContextSection{
		Kind:       capability.SectionUserTurn,
		Content:    in.userTurn,
		TokenCount: userTurnTokens,
		Priority:   10,
	})
	total += userTurnTokens

	return sections, total, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// composeProject keeps name + description only, dropping metadata, per
// spec §4.4 step 5's truncation rule for the project layer.
func composeProject(acct *accountant.Accountant, facts capability.ProjectFacts, layerCap int) (capability.ContextSection, int) {
	if layerCap <= 0 {
		return capability.ContextSection{}, 0
	}
	content := facts.Name
	if facts.Description != "" {
		content = content + ": " + facts.Description
	}
	tokens := acct.Estimate(content)
	if tokens > layerCap {
		content = truncateToApproxTokens(content, layerCap)
		tokens = acct.Estimate(content)
	}
	return capability.ContextSection{Kind: capability.SectionProject, Content: content, TokenCount: tokens, Priority: 5}, tokens
}

// composeSummary truncates from the end when it overflows its layerCap.
func composeSummary(acct *accountant.Accountant, summary string, layerCap int) (capability.ContextSection, int) {
	if layerCap <= 0 {
		return capability.ContextSection{}, 0
	}
	content := summary
	tokens := acct.Estimate(content)
	if tokens > layerCap {
		content = truncateToApproxTokens(content, layerCap)
		tokens = acct.Estimate(content)
	}
	return capability.ContextSection{Kind: capability.SectionSummary, Content: content, TokenCount: tokens, Priority: 6}, tokens
}

// composeArtifacts drops the lowest relevance_score artifacts first until
// the remainder fits under layerCap.
func composeArtifacts(acct *accountant.Accountant, artifacts []capability.KnowledgeArtifact, layerCap int) ([]capability.ContextSection, int) {
	if layerCap <= 0 || len(artifacts) == 0 {
		return nil, 0
	}
	sorted := make([]capability.KnowledgeArtifact, len(artifacts))
	copy(sorted, artifacts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RelevanceScore > sorted[j].RelevanceScore })

	var sections []capability.ContextSection
	used := 0
	for _, a := range sorted {
		content := a.Name + "\n" + a.Content.OriginalText
		tokens := acct.Estimate(content)
		if used+tokens > layerCap {
			break
		}
		sections = append(sections, capability.ContextSection{
			Kind:       capability.SectionArtifact,
			Content:    content,
			TokenCount: tokens,
			Priority:   a.RelevanceScore,
		})
		used += tokens
	}
	return sections, used
}

// composeRecent drops the oldest turns first, keeping the most recent
// dialogue that fits under layerCap.
func composeRecent(acct *accountant.Accountant, recent []capability.Message, layerCap int) (capability.ContextSection, int) {
	if layerCap <= 0 || len(recent) == 0 {
		return capability.ContextSection{}, 0
	}
	var kept []string
	used := 0
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		line := string(m.Role) + ": " + m.Content
		tokens := acct.Estimate(line)
		if used+tokens > layerCap {
			break
		}
		kept = append([]string{line}, kept...)
		used += tokens
	}
	if len(kept) == 0 {
		return capability.ContextSection{}, 0
	}
	content := strings.Join(kept, "\n")
	return capability.ContextSection{Kind: capability.SectionRecentDialogue, Content: content, TokenCount: used, Priority: 7}, used
}

// truncateToApproxTokens trims content so the char/4 heuristic estimate
// fits within layerCap tokens.
func truncateToApproxTokens(content string, layerCap int) string {
	maxChars := layerCap * 4
	if maxChars >= len(content) {
		return content
	}
	if maxChars < 0 {
		maxChars = 0
	}
	return content[:maxChars]
}
