package store

import (
	"encoding/json"
	"time"

	"github.com/maestro-labs/mcae/pkg/capability"
)

func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMetadata(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil
	}
	return metadata
}

func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

func artifactToRow(a capability.KnowledgeArtifact) (artifactRow, error) {
	tagsJSON, err := marshalTags(a.Tags)
	if err != nil {
		return artifactRow{}, err
	}
	metaJSON, err := marshalMetadata(a.Metadata)
	if err != nil {
		return artifactRow{}, err
	}
	return artifactRow{
		id:                   a.ID,
		projectID:            a.ProjectID,
		artifactType:         string(a.ArtifactType),
		name:                 a.Name,
		originalText:         a.Content.OriginalText,
		analysis:             a.Content.Analysis,
		summary:              a.Content.Summary,
		tags:                 tagsJSON,
		metadata:             metaJSON,
		relevanceScore:       a.RelevanceScore,
		extractionMethod:     string(a.ExtractionMethod),
		extractionConfidence: a.ExtractionConfidence,
		autoGenerated:        a.AutoGenerated,
		sourceMessageID:      a.SourceMessageID,
	}, nil
}

// artifactRow is the flat shape knowledge_artifacts stores; scanning
// into it first keeps the sql.Rows.Scan call a flat list of pointers.
type artifactRow struct {
	id                   string
	projectID            string
	artifactType         string
	name                 string
	originalText         string
	analysis             string
	summary              string
	tags                 string
	metadata             string
	relevanceScore       int
	extractionMethod     string
	extractionConfidence float64
	autoGenerated        bool
	sourceMessageID      string
	createdAtUnix        int64
	updatedAtUnix        int64
}

func (r artifactRow) toArtifact() capability.KnowledgeArtifact {
	return capability.KnowledgeArtifact{
		ID:        r.id,
		ProjectID: r.projectID,
		ArtifactType: capability.ArtifactType(r.artifactType),
		Name:      r.name,
		Content: capability.ArtifactContent{
			OriginalText: r.originalText,
			Analysis:     r.analysis,
			Summary:      r.summary,
		},
		Tags:                 unmarshalTags(r.tags),
		Metadata:             unmarshalMetadata(r.metadata),
		RelevanceScore:       r.relevanceScore,
		ExtractionMethod:     capability.ExtractionMethod(r.extractionMethod),
		ExtractionConfidence: r.extractionConfidence,
		AutoGenerated:        r.autoGenerated,
		SourceMessageID:      r.sourceMessageID,
		CreatedAt:            time.Unix(r.createdAtUnix, 0),
		UpdatedAt:            time.Unix(r.updatedAtUnix, 0),
	}
}
