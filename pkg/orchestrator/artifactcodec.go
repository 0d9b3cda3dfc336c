package orchestrator

import (
	"encoding/json"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// encodeArtifactRefs / decodeArtifactRefs serialize a retrieval result for
// RAMR storage as self-describing JSON, matching spec §6's wire-format
// requirement that cached values round-trip without losing fields.
func encodeArtifactRefs(artifacts []capability.KnowledgeArtifact) ([]byte, error) {
	return json.Marshal(artifacts)
}

func decodeArtifactRefs(value []byte) ([]capability.KnowledgeArtifact, error) {
	var artifacts []capability.KnowledgeArtifact
	if err := json.Unmarshal(value, &artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}
