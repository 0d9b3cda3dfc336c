// Package knowledge implements the Knowledge Extractor: a pattern- and
// score-based analyzer that inspects conversational turns and produces
// typed, tagged, deduplicated KnowledgeArtifact candidates (spec §4.2).
//
// The scoring shape — count hits across weighted keyword/pattern
// buckets, pick the bucket with the most hits, break ties by a fixed
// precedence list — is grounded on the teacher's own heuristic text
// classifiers: pkg/architect/spec2stories.go's estimatePoints (weighted
// keyword buckets) and pkg/contextmgr/contextmgr.go's
// createConversationSummary (keyword-bucket topic/issue extraction).
package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

// DefaultMinExtractableLength matches spec §4.2 step 1 / §6.
const DefaultMinExtractableLength = 50

// DefaultExtractionThreshold matches spec §4.2 step 4 / §6.
const DefaultExtractionThreshold = 5

// ExtractionResult is the Extractor's output (spec §4.2).
type ExtractionResult struct {
	ShouldExtract   bool
	Score           float64
	Confidence      float64
	ArtifactType    ArtifactType
	SuggestedTitle  string
	Tags            []string
	Categories      []string
	PatternsMatched []string
	Reason          string
	Err             error // set only when Reason == "analysis_error"
}

// Extractor scores text fragments and produces ExtractionResult values.
// The zero value is usable; Now defaults to time.Now if unset, which lets
// tests inject a deterministic clock.
type Extractor struct {
	MinExtractableLength int
	ExtractionThreshold  float64
	Now                  func() time.Time
}

// New returns an Extractor configured with spec's defaults.
func New() *Extractor {
	return &Extractor{
		MinExtractableLength: DefaultMinExtractableLength,
		ExtractionThreshold:  DefaultExtractionThreshold,
		Now:                  time.Now,
	}
}

func (e *Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Analyze is infallible from the caller's perspective (spec §9): every
// failure path is encoded in the returned ExtractionResult.Reason rather
// than as a Go error.
func (e *Extractor) Analyze(content, userInput, sourceMessageID string) ExtractionResult {
	minLen := e.MinExtractableLength
	if minLen <= 0 {
		minLen = DefaultMinExtractableLength
	}
	threshold := e.ExtractionThreshold
	if threshold <= 0 {
		threshold = DefaultExtractionThreshold
	}

	if len(content) < minLen {
		return ExtractionResult{ShouldExtract: false, Reason: "content_too_short"}
	}

	result := e.score(content, userInput, threshold)
	return result
}

// groupHit records that a pattern group matched, along with which of its
// patterns fired (for PatternsMatched reporting).
type groupHit struct {
	group   patternGroup
	matched []string
}

func (e *Extractor) score(content, userInput string, threshold float64) (result ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ExtractionResult{
				ShouldExtract: false,
				Reason:        "analysis_error",
				Err:           fmt.Errorf("panic during scoring: %v", r),
			}
		}
	}()

	var hits []groupHit
	weightSum := 0
	categoryHitCounts := map[ArtifactType]int{}

	for _, group := range patternGroups {
		matched := e.matchGroup(group, content)
		if len(matched) == 0 {
			continue
		}
		hits = append(hits, groupHit{group: group, matched: matched})
		weightSum += group.weight
		categoryHitCounts[group.category]++
	}

	bonus := bonusPoints(content, userInput)
	score := float64(weightSum + bonus)

	shouldExtract := score >= threshold
	artifactType := categorize(categoryHitCounts)
	confidence := computeConfidence(weightSum, score)
	title := deriveTitle(content, userInput, artifactType, e.now())
	tags := deriveTags(hits, content, userInput)
	categories := make([]string, 0, len(hits))
	patternsMatched := make([]string, 0)
	for _, h := range hits {
		categories = append(categories, h.group.name)
		patternsMatched = append(patternsMatched, h.matched...)
	}
	sort.Strings(categories)

	reason := ""
	if !shouldExtract {
		reason = "below_threshold"
	}

	return ExtractionResult{
		ShouldExtract:   shouldExtract,
		Score:           score,
		Confidence:      confidence,
		ArtifactType:    artifactType,
		SuggestedTitle:  title,
		Tags:            tags,
		Categories:      categories,
		PatternsMatched: patternsMatched,
		Reason:          reason,
	}
}

// matchGroup runs every pattern in group against content; a single
// group's failure (a panic from a malformed pattern at runtime, in
// principle impossible since patterns are compiled at init, but kept
// per spec §4.2's "pattern matching errors on any single group are
// caught and that group is skipped") never aborts the whole scan.
func (e *Extractor) matchGroup(group patternGroup, content string) (matched []string) {
	defer func() {
		if recover() != nil {
			matched = nil
		}
	}()
	for _, p := range group.patterns {
		if p.MatchString(content) {
			matched = append(matched, p.String())
		}
	}
	return matched
}

func categorize(counts map[ArtifactType]int) ArtifactType {
	best := ArtifactGeneral
	bestCount := 0
	for cat, count := range counts {
		if count > bestCount || (count == bestCount && count > 0 && categoryPrecedence[cat] < categoryPrecedence[best]) {
			best = cat
			bestCount = count
		}
	}
	if bestCount == 0 {
		return ArtifactGeneral
	}
	return best
}

func computeConfidence(weightSum int, score float64) float64 {
	c := 0.7*min1(float64(weightSum)/10) + 0.3*min1(score/15)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// bonusPoints implements spec §4.2 step 3's bonus schedule.
func bonusPoints(content, userInput string) int {
	bonus := 0
	if codeBlockRe.MatchString(content) {
		bonus += 3
	}
	if len(content) > 150 {
		bonus += 1
	}
	bonus += technicalTermBonus(content)
	if numberedStepsRe.MatchString(content) {
		bonus += 2
	}
	if containsAny(content, "fix", "solved", "resolved", "solution") {
		bonus += 3
	}
	if containsAny(content, "error", "exception", "failed", "debug") {
		bonus += 2
	}
	if containsAny(content, "alternatively", "option", "or you could", "another way") {
		bonus += 1
	}
	if containsAny(content, "best practice", "recommended", "should use") {
		bonus += 2
	}
	if containsAny(content, "config", "configure", "environment variable", "setting") {
		bonus += 2
	}
	if userInput != "" && relevanceOverlap(content, userInput) {
		bonus += 1
	}
	return bonus
}

// technicalTermBonus grants up to +6 for distinct technical terms found,
// one point each (spec §4.2: "≥1 technical term up to +6").
func technicalTermBonus(content string) int {
	lower := strings.ToLower(content)
	count := 0
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			count++
			if count >= 6 {
				return 6
			}
		}
	}
	return count
}

func containsAny(content string, needles ...string) bool {
	lower := strings.ToLower(content)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func relevanceOverlap(content, userInput string) bool {
	contentLower := strings.ToLower(content)
	for _, word := range strings.Fields(strings.ToLower(userInput)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if len(word) >= 4 && strings.Contains(contentLower, word) {
			return true
		}
	}
	return false
}

// deriveTitle implements spec §4.2 step 7's fallback chain.
func deriveTitle(content, userInput string, artifactType ArtifactType, now time.Time) string {
	if m := headerLineRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := solutionPhraseRe.FindStringSubmatch(content); m != nil {
		title := strings.TrimSpace(m[1])
		return truncateRunes(title, 50)
	}
	if userInput != "" && len(userInput) <= 100 {
		return userInput
	}
	if sentence := firstSentenceInRange(content, 20, 100); sentence != "" {
		return sentence
	}
	return fmt.Sprintf("%s: extracted %s", artifactType, now.UTC().Format(time.RFC3339))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstSentenceInRange(content string, minLen, maxLen int) string {
	var sentences []string
	var b strings.Builder
	for _, r := range content {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}
	for _, s := range sentences {
		trimmed := strings.TrimSpace(s)
		if len(trimmed) >= minLen && len(trimmed) <= maxLen {
			return trimmed
		}
	}
	return ""
}

// deriveTags implements spec §4.2 step 8, capped at 10.
func deriveTags(hits []groupHit, content, userInput string) []string {
	tagSet := map[string]struct{}{}
	var tags []string
	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, ok := tagSet[tag]; ok {
			return
		}
		tagSet[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, h := range hits {
		add(h.group.name)
	}

	lowerContent := strings.ToLower(content)
	for _, term := range technicalTerms {
		if strings.Contains(lowerContent, term) {
			add(term)
		}
	}

	if userInput != "" {
		for _, word := range strings.Fields(strings.ToLower(userInput)) {
			word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
			if len(word) < 4 {
				continue
			}
			for _, term := range technicalTerms {
				if word == term {
					add(term)
				}
			}
		}
	}

	add("auto_extracted")
	add("durandal_knowledge")

	if len(tags) > 10 {
		tags = tags[:10]
	}
	return tags
}
