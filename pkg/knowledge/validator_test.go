package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-labs/mcae/pkg/capability"
)

func TestValidateArtifactRequiredFields(t *testing.T) {
	errs := ValidateArtifact(capability.KnowledgeArtifact{})
	assert.NotEmpty(t, errs)

	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "project_id")
	assert.Contains(t, fields, "name")
}

func TestValidateArtifactValid(t *testing.T) {
	a := capability.KnowledgeArtifact{
		ProjectID:            "proj-1",
		Name:                 "A Title",
		ArtifactType:         capability.ArtifactSolution,
		ExtractionMethod:     capability.ExtractionAutomatic,
		RelevanceScore:       5,
		ExtractionConfidence: 0.8,
	}
	errs := ValidateArtifact(a)
	assert.Empty(t, errs)
}

func TestValidateArtifactRejectsOutOfRangeScore(t *testing.T) {
	a := capability.KnowledgeArtifact{
		ProjectID:      "p",
		Name:           "n",
		RelevanceScore: 11,
	}
	errs := ValidateArtifact(a)
	require.NotEmpty(t, errs)
	assert.Equal(t, "relevance_score", errs[len(errs)-1].Field)
}

func TestValidateAndReportFormatsMessage(t *testing.T) {
	err := ValidateAndReport(capability.KnowledgeArtifact{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact validation failed")
}
