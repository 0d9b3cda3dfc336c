package knowledge

import (
	"strings"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// DedupTitleSimilarityThreshold matches spec §4.2's dedup check: title
// similarity strictly greater than 0.7 against an existing auto-generated
// artifact within the window counts as a duplicate.
const DedupTitleSimilarityThreshold = 0.7

// ContentPrefixLen is the number of leading characters of new content
// checked against an existing artifact's stored original text (spec §4.2).
const ContentPrefixLen = 100

// IsDuplicate implements spec §4.2's dedup rule: an incoming artifact is
// a duplicate when either its title is similar enough to an existing
// auto-generated candidate within the window, or the existing artifact's
// original content already contains the new content's first 100 chars.
// The caller is responsible for restricting candidates to the window via
// DocumentStore.FindSimilarArtifacts before calling this.
func IsDuplicate(candidateTitle, candidateContent string, existing []capability.KnowledgeArtifact) bool {
	prefix := firstNRunes(candidateContent, ContentPrefixLen)
	for _, e := range existing {
		if !e.AutoGenerated {
			continue
		}
		if titleSimilarity(candidateTitle, e.Name) > DedupTitleSimilarityThreshold {
			return true
		}
		if prefix != "" && strings.Contains(e.Content.OriginalText, prefix) {
			return true
		}
	}
	return false
}

func firstNRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// titleSimilarity is a Jaro similarity measure over lower-cased titles.
// No pack dependency offers string similarity (see DESIGN.md); this is a
// small, self-contained implementation sufficient for the 0.7 threshold
// spec names.
func titleSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return jaro(a, b)
}

func jaro(s1, s2 string) float64 {
	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	matchDistance := max(len1, len2)/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}

	s1Matches := make([]bool, len1)
	s2Matches := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		start := max(0, i-matchDistance)
		end := min(len2, i+matchDistance+1)
		for j := start; j < end; j++ {
			if s2Matches[j] || r1[i] != r2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-float64(transpositions))/m) / 3
}
