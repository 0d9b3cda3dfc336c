package knowledge

import (
	"fmt"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// ValidationError represents a validation error in a KnowledgeArtifact.
// Adapted from the teacher's pkg/knowledge/validator.go, which validates
// DOT-graph node/edge fields with the same shape; here the fields are
// KnowledgeArtifact's instead.
type ValidationError struct {
	ArtifactID string
	Field      string
	Message    string
}

func (v ValidationError) Error() string {
	if v.ArtifactID != "" && v.Field != "" {
		return fmt.Sprintf("artifact %q field %q: %s", v.ArtifactID, v.Field, v.Message)
	}
	if v.ArtifactID != "" {
		return fmt.Sprintf("artifact %q: %s", v.ArtifactID, v.Message)
	}
	return v.Message
}

var validArtifactTypes = map[ArtifactType]bool{
	ArtifactSolution:       true,
	ArtifactExplanation:    true,
	ArtifactRecommendation: true,
	ArtifactConfiguration:  true,
	ArtifactProcedure:      true,
	ArtifactCode:           true,
	ArtifactDebugging:      true,
	ArtifactImportantNote:  true,
	ArtifactGeneral:        true,
}

var validExtractionMethods = map[capability.ExtractionMethod]bool{
	capability.ExtractionManual:    true,
	capability.ExtractionAutomatic: true,
}

// ValidateArtifact validates a single KnowledgeArtifact and returns all
// errors found.
func ValidateArtifact(a capability.KnowledgeArtifact) []ValidationError {
	var errs []ValidationError

	if a.ProjectID == "" {
		errs = append(errs, ValidationError{ArtifactID: a.ID, Field: "project_id", Message: "project_id is required"})
	}
	if a.Name == "" {
		errs = append(errs, ValidationError{ArtifactID: a.ID, Field: "name", Message: "name is required"})
	}
	if a.ArtifactType != "" && !validArtifactTypes[a.ArtifactType] {
		errs = append(errs, ValidationError{
			ArtifactID: a.ID, Field: "artifact_type",
			Message: fmt.Sprintf("invalid artifact_type %q", a.ArtifactType),
		})
	}
	if a.ExtractionMethod != "" && !validExtractionMethods[a.ExtractionMethod] {
		errs = append(errs, ValidationError{
			ArtifactID: a.ID, Field: "extraction_method",
			Message: fmt.Sprintf("invalid extraction_method %q", a.ExtractionMethod),
		})
	}
	if a.RelevanceScore != 0 && (a.RelevanceScore < 1 || a.RelevanceScore > 10) {
		errs = append(errs, ValidationError{
			ArtifactID: a.ID, Field: "relevance_score",
			Message: "relevance_score must be in [1,10]",
		})
	}
	if a.ExtractionConfidence < 0 || a.ExtractionConfidence > 1 {
		errs = append(errs, ValidationError{
			ArtifactID: a.ID, Field: "extraction_confidence",
			Message: "extraction_confidence must be in [0,1]",
		})
	}
	if len(a.Tags) > 10 {
		errs = append(errs, ValidationError{
			ArtifactID: a.ID, Field: "tags",
			Message: "tags exceeds the 10-tag cap",
		})
	}

	return errs
}

// ValidateAndReport validates the artifact and returns a formatted error
// if validation fails, or nil on success.
func ValidateAndReport(a capability.KnowledgeArtifact) error {
	errs := ValidateArtifact(a)
	if len(errs) == 0 {
		return nil
	}
	msg := fmt.Sprintf("artifact validation failed with %d error(s):\n", len(errs))
	for i, e := range errs {
		msg += fmt.Sprintf("  %d. %s\n", i+1, e.Error())
	}
	return fmt.Errorf("%s", msg)
}
