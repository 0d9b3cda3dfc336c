// Package ramr implements RAMR, the three-tier intelligent cache (spec
// §4.3): an in-process map (T1), an embedded relational store (T2), and
// an optional durable mirror reached through a DocumentStore (T3).
package ramr

import (
	"math"
	"strings"
	"time"
)

// admissionDecision is RAMR.put's admission outcome (spec §4.3).
type admissionDecision struct {
	shouldCache bool
	priority    int
	ttl         time.Duration
}

// decideAdmission implements spec §4.3's admission heuristic. It is a
// pure function with no object identity, exactly matching spec §9's
// note that extraction-style scoring during admission should be
// re-expressed as a free function rather than RAMR holding a handle to
// the Extractor. Grounded in the teacher-pack's "weighted sum of
// independently named sub-scores" style seen in the ClaraVerse
// extraction service's calculateEngagement.
func decideAdmission(valuePreview []byte, hintType string, hintPriority *int, sizeBytes int) admissionDecision {
	priority := 5
	if hintPriority != nil {
		priority = *hintPriority
	}

	previewLower := strings.ToLower(string(valuePreview))
	hasCodeMarkers := strings.Contains(previewLower, "```") || strings.Contains(previewLower, "func ") || strings.Contains(previewLower, "def ")

	if hasCodeMarkers || hintType == "code" || hintType == "solution" {
		priority += 2
	}
	if hintType == "solution" || hintType == "configuration" {
		priority += 1
	}
	if sizeBytes > 1024 {
		priority += 1
	}
	if hintType == "casual" {
		priority -= 2
	}

	priority = clamp(priority, 1, 10)

	return admissionDecision{
		shouldCache: priority >= 4,
		priority:    priority,
		ttl:         ttlForType(hintType),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ttlForType implements spec §4.3's per-type TTL default table.
func ttlForType(hintType string) time.Duration {
	switch hintType {
	case "code", "solution":
		return 24 * time.Hour
	case "configuration":
		return 12 * time.Hour
	case "conversation_context":
		return 30 * time.Minute
	case "summary":
		return 6 * time.Hour
	default:
		return 1 * time.Hour
	}
}

// relevanceScore implements spec §4.3's get_relevant formula:
// 0.5*lexical_overlap + 0.3*(priority/10) + 0.2*recency_decay.
func relevanceScore(queryText, keyAndPreview string, priority int, lastAccessed, now time.Time) float64 {
	overlap := lexicalOverlap(queryText, keyAndPreview)
	priorityComponent := float64(priority) / 10
	recency := recencyDecay(lastAccessed, now)
	return 0.5*overlap + 0.3*priorityComponent + 0.2*recency
}

// lexicalOverlap is the fraction of query tokens that appear in the
// target text, a simple Jaccard-style overlap with no pack-provided
// text-similarity dependency (see DESIGN.md: no library in the examined
// pack offers this, and spec's formula only needs a bounded [0,1]
// overlap measure).
func lexicalOverlap(query, target string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	targetSet := map[string]struct{}{}
	for _, t := range tokenize(target) {
		targetSet[t] = struct{}{}
	}
	hits := 0
	for _, t := range queryTokens {
		if _, ok := targetSet[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// recencyDecay maps age-since-last-access onto (0,1] as exp(-hours/2)
// (about 0.61 after one hour, 0.37 after two), so a just-accessed entry
// scores near 1 and an entry untouched for many hours decays toward 0.
func recencyDecay(lastAccessed, now time.Time) float64 {
	age := now.Sub(lastAccessed)
	if age < 0 {
		age = 0
	}
	hours := age.Hours()
	return math.Exp(-hours / 2)
}

// evictionScore implements spec §4.3's eviction composite:
// 0.6*(1 - priority/10) + 0.4*age_since_last_access_normalized. The
// score rises as priority falls and age grows, so the entry with the
// highest score — low priority, stale — is evicted first. ageNormalized
// must already be in [0,1] (caller divides by the oldest observed age
// in the tier being scanned).
func evictionScore(priority int, ageNormalized float64) float64 {
	return 0.6*(1-float64(priority)/10) + 0.4*ageNormalized
}
