package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maestro-labs/mcae/pkg/capability"
)

func TestIsDuplicateByTitleSimilarity(t *testing.T) {
	existing := []capability.KnowledgeArtifact{
		{Name: "Connection Timeout Fix", AutoGenerated: true, Content: capability.ArtifactContent{OriginalText: "unrelated"}},
	}
	assert.True(t, IsDuplicate("Connection Timeout Fix", "new content entirely", existing))
}

func TestIsDuplicateByContentPrefix(t *testing.T) {
	prefixText := "The fix is to set TIMEOUT=30 in the config and restart the service immediately."
	existing := []capability.KnowledgeArtifact{
		{Name: "Totally Different Title", AutoGenerated: true, Content: capability.ArtifactContent{OriginalText: prefixText + " extra detail appended here"}},
	}
	assert.True(t, IsDuplicate("Totally Different Title Indeed", prefixText, existing))
}

func TestNotDuplicateWhenManual(t *testing.T) {
	existing := []capability.KnowledgeArtifact{
		{Name: "Connection Timeout Fix", AutoGenerated: false, Content: capability.ArtifactContent{OriginalText: "content"}},
	}
	assert.False(t, IsDuplicate("Connection Timeout Fix", "content", existing))
}

func TestNotDuplicateWhenDissimilar(t *testing.T) {
	existing := []capability.KnowledgeArtifact{
		{Name: "Completely unrelated topic", AutoGenerated: true, Content: capability.ArtifactContent{OriginalText: "nothing in common here"}},
	}
	assert.False(t, IsDuplicate("Database migration guide", "a brand new different fragment of text", existing))
}

func TestTitleSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, titleSimilarity("same title", "same title"))
}

func TestTitleSimilarityEmpty(t *testing.T) {
	assert.Equal(t, float64(0), titleSimilarity("", "something"))
	assert.Equal(t, float64(1), titleSimilarity("", ""))
}
