package mcaeconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, CurrentSchemaVersion, cfg.SchemaVersion)
	assert.Equal(t, 200, cfg.MemoryCapacity)
	assert.Equal(t, 10000, cfg.EmbeddedCapacityEntries)
}

func TestValidateRejectsBadFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryCapacity = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LanguageModel.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigMissingFileInstallsDefaults(t *testing.T) {
	dir := t.TempDir()
	err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MemoryCapacity, GetConfig().MemoryCapacity)
}

func TestSaveThenLoadConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcae.yaml")

	cfg := DefaultConfig()
	cfg.MaxArtifacts = 9
	cfg.LanguageModel.Provider = "ollama"
	cfg.LanguageModel.Model = "llama3.1"
	require.NoError(t, SaveConfig(path, cfg))

	require.NoError(t, LoadConfig(path))
	loaded := GetConfig()
	assert.Equal(t, 9, loaded.MaxArtifacts)
	assert.Equal(t, "ollama", loaded.LanguageModel.Provider)
}

func TestOrchestratorConfigProjection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxArtifacts = 11
	oc := cfg.OrchestratorConfig()
	assert.Equal(t, 11, oc.MaxArtifacts)
	assert.Equal(t, cfg.RecentMessageCount, oc.RecentMessageCount)
}

func TestExtractorConfigProjection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtractionThreshold = 7
	e := cfg.ExtractorConfig()
	assert.Equal(t, 7.0, e.ExtractionThreshold)
}
