package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAnalyzeContentTooShort(t *testing.T) {
	e := New()
	result := e.Analyze("too short", "", "")
	assert.False(t, result.ShouldExtract)
	assert.Equal(t, "content_too_short", result.Reason)
}

func TestAnalyzeBoundaryMinExtractableLength(t *testing.T) {
	e := New()
	content := make([]byte, DefaultMinExtractableLength-1)
	for i := range content {
		content[i] = 'a'
	}
	result := e.Analyze(string(content), "", "")
	assert.False(t, result.ShouldExtract)
	assert.Equal(t, "content_too_short", result.Reason)
}

func TestAnalyzeSolutionIsExtracted(t *testing.T) {
	e := New()
	e.Now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	content := "The fix is to set TIMEOUT=30 in the environment variable and restart. " +
		"This fixes the connection error that was failing to connect. ```go\nfunc main(){}\n```"
	result := e.Analyze(content, "why does it time out", "")

	require.True(t, result.ShouldExtract)
	assert.GreaterOrEqual(t, result.Score, float64(DefaultExtractionThreshold))
	assert.NotEmpty(t, result.SuggestedTitle)
	assert.Contains(t, result.Tags, "auto_extracted")
	assert.Contains(t, result.Tags, "durandal_knowledge")
	assert.LessOrEqual(t, len(result.Tags), 10)
}

func TestAnalyzeBelowThreshold(t *testing.T) {
	e := New()
	content := "This is just a plain, unremarkable sentence of reasonable length with no special markers at all here."
	result := e.Analyze(content, "", "")
	assert.False(t, result.ShouldExtract)
}

func TestConfidenceWithinRange(t *testing.T) {
	e := New()
	content := "The fix is to set X=1. Solution works. ```code block```  error: something failed to debug."
	result := e.Analyze(content, "", "")
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestCategorizationPrecedence(t *testing.T) {
	counts := map[ArtifactType]int{
		ArtifactSolution:    1,
		ArtifactExplanation: 1,
	}
	assert.Equal(t, ArtifactSolution, categorize(counts))
}

func TestCategorizationEmptyIsGeneral(t *testing.T) {
	assert.Equal(t, ArtifactGeneral, categorize(map[ArtifactType]int{}))
}

func TestTitleFromHeaderLine(t *testing.T) {
	content := "# Connection Timeout Fix\n\nThe fix is to set TIMEOUT=30 and restart the service now."
	title := deriveTitle(content, "", ArtifactSolution, time.Now())
	assert.Equal(t, "Connection Timeout Fix", title)
}

func TestTitleFallsBackToTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	title := deriveTitle("xyz", "", ArtifactGeneral, now)
	assert.Contains(t, title, "general: extracted")
}

func TestAnalyzeNeverPanics(t *testing.T) {
	e := New()
	// Pathological inputs should still return a result, never panic out.
	inputs := []string{
		"",
		string(make([]byte, 10000)),
		"```````````````````",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_ = e.Analyze(in, "", "")
		})
	}
}
