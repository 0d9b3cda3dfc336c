// Package mcaeconfig provides configuration loading, validation, and
// atomic update for the MCAE subsystems, in the idiom of the teacher's
// pkg/config/config.go: a schema-versioned struct, a package-level
// singleton guarded by a mutex, and value-based access so callers can
// never mutate the live config by holding a pointer into it.
package mcaeconfig

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maestro-labs/mcae/pkg/accountant"
	"github.com/maestro-labs/mcae/pkg/knowledge"
	"github.com/maestro-labs/mcae/pkg/orchestrator"
	"github.com/maestro-labs/mcae/pkg/ramr"
)

// CurrentSchemaVersion must be bumped whenever a field is added, removed,
// or renamed below — matching the teacher's own SchemaVersion discipline
// so old config files on disk are recognizable as stale.
const CurrentSchemaVersion = 1

// LanguageModelConfig names a single configured provider/model pair,
// generalized from the teacher's ModelDefaults (pkg/config/config.go).
type LanguageModelConfig struct {
	Provider string `yaml:"provider"` // "anthropic", "openai", "ollama", "genai"
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url,omitempty"` // only meaningful for ollama
}

// Config holds every tunable spec §6 names, plus the provider selection
// the distilled spec leaves as an implementation detail. The zero value
// is not usable directly; call DefaultConfig or LoadConfig.
type Config struct {
	SchemaVersion int `yaml:"schema_version"`

	MemoryCapacity           int                      `yaml:"memory_capacity"`
	EmbeddedCapacityEntries  int                      `yaml:"embedded_capacity_entries"`
	RecentMessageCount       int                      `yaml:"recent_message_count"`
	MaxArtifacts             int                      `yaml:"max_artifacts"`
	SummaryThresholdMessages int                      `yaml:"summary_threshold_messages"`
	SummaryTriggerTokens     int                      `yaml:"summary_trigger_tokens"`
	DefaultBudgetTokens      int                      `yaml:"default_budget_tokens"`
	ExtractionThreshold      float64                  `yaml:"extraction_threshold"`
	MinExtractableLength     int                      `yaml:"min_extractable_length"`
	TTLDefaults              map[string]time.Duration `yaml:"ttl_defaults"`

	EmbeddedDBPath string `yaml:"embedded_db_path"`
	DocumentDBPath string `yaml:"document_db_path"`

	LanguageModel LanguageModelConfig `yaml:"language_model"`
}

// DefaultConfig returns the documented defaults from spec §6.
func DefaultConfig() Config {
	return Config{
		SchemaVersion:            CurrentSchemaVersion,
		MemoryCapacity:           ramr.DefaultMemoryCapacity,
		EmbeddedCapacityEntries:  ramr.DefaultEmbeddedCapacityEntries,
		RecentMessageCount:       6,
		MaxArtifacts:             5,
		SummaryThresholdMessages: 20,
		SummaryTriggerTokens:     1500,
		DefaultBudgetTokens:      4096,
		ExtractionThreshold:      knowledge.DefaultExtractionThreshold,
		MinExtractableLength:     knowledge.DefaultMinExtractableLength,
		TTLDefaults: map[string]time.Duration{
			"code":                 24 * time.Hour,
			"solution":             24 * time.Hour,
			"configuration":        12 * time.Hour,
			"conversation_context": 30 * time.Minute,
			"summary":              6 * time.Hour,
		},
		EmbeddedDBPath: "mcae_ramr.db",
		DocumentDBPath: "mcae_store.db",
		LanguageModel: LanguageModelConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-20250514",
		},
	}
}

// Validate rejects configs that would put a subsystem in a nonsensical
// state, matching the teacher's validate-before-persist discipline.
func (c Config) Validate() error {
	if c.MemoryCapacity <= 0 {
		return fmt.Errorf("memory_capacity must be positive")
	}
	if c.EmbeddedCapacityEntries <= 0 {
		return fmt.Errorf("embedded_capacity_entries must be positive")
	}
	if c.RecentMessageCount <= 0 {
		return fmt.Errorf("recent_message_count must be positive")
	}
	if c.MaxArtifacts <= 0 {
		return fmt.Errorf("max_artifacts must be positive")
	}
	if c.DefaultBudgetTokens <= 0 {
		return fmt.Errorf("default_budget_tokens must be positive")
	}
	if c.MinExtractableLength < 0 {
		return fmt.Errorf("min_extractable_length cannot be negative")
	}
	switch c.LanguageModel.Provider {
	case "anthropic", "openai", "ollama", "genai":
	default:
		return fmt.Errorf("unknown language_model.provider %q", c.LanguageModel.Provider)
	}
	return nil
}

// RAMRConfig projects the relevant subset (capacities and
// EmbeddedDBPath) onto ramr.Config. The caller still supplies any other
// ramr.Config fields it needs.
func (c Config) RAMRConfig() ramr.Config {
	return ramr.Config{
		MemoryCapacity:          c.MemoryCapacity,
		EmbeddedCapacityEntries: c.EmbeddedCapacityEntries,
		EmbeddedDBPath:          c.EmbeddedDBPath,
	}
}

// OrchestratorConfig projects the relevant subset onto orchestrator.Config.
func (c Config) OrchestratorConfig() orchestrator.Config {
	cfg := orchestrator.DefaultConfig()
	cfg.RecentMessageCount = c.RecentMessageCount
	cfg.MaxArtifacts = c.MaxArtifacts
	cfg.SummaryThresholdMessages = c.SummaryThresholdMessages
	cfg.SummaryTriggerTokens = c.SummaryTriggerTokens
	cfg.DefaultBudgetTokens = c.DefaultBudgetTokens
	return cfg
}

// ExtractorConfig projects the relevant subset onto a knowledge.Extractor.
func (c Config) ExtractorConfig() *knowledge.Extractor {
	e := knowledge.New()
	e.MinExtractableLength = c.MinExtractableLength
	e.ExtractionThreshold = c.ExtractionThreshold
	return e
}

// AccountantConfig returns an accountant built per spec §4.1: the char
// heuristic by default, or tiktoken-precise when a model is named and
// the codec loads cleanly (accountant.NewPrecise already falls back to
// the heuristic on any codec error).
func (c Config) AccountantConfig() *accountant.Accountant {
	if c.LanguageModel.Model == "" {
		return accountant.New()
	}
	return accountant.NewPrecise(c.LanguageModel.Model)
}

// Global config instance, protected by a mutex — matching the teacher's
// single in-memory singleton pattern (pkg/config/config.go).
var (
	globalConfig   Config
	globalConfigMu sync.RWMutex
	loaded         bool
)

// LoadConfig reads and parses the YAML file at path, validates it, and
// installs it as the global singleton. A missing file is not an error:
// DefaultConfig is installed instead, matching the teacher's
// "config optional, generated on first UpdateX" behavior.
func LoadConfig(path string) error {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return setGlobal(cfg)
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.SchemaVersion == 0 {
		cfg.SchemaVersion = CurrentSchemaVersion
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return setGlobal(cfg)
}

func setGlobal(cfg Config) error {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	loaded = true
	return nil
}

// GetConfig returns a copy of the current global config. Callers MUST
// NOT rely on mutating the returned value to change behavior — go
// through SaveConfig/LoadConfig instead, matching the teacher's
// value-based access discipline.
func GetConfig() Config {
	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	if !loaded {
		return DefaultConfig()
	}
	return globalConfig
}

// SaveConfig marshals cfg to YAML and writes it to path, then installs
// it as the global singleton.
func SaveConfig(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return setGlobal(cfg)
}
