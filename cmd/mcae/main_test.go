package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maestro-labs/mcae/pkg/mcaeconfig"
)

func TestFlagValue(t *testing.T) {
	v, ok := flagValue("--dir=/tmp/x", "--dir")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/x", v)

	_, ok = flagValue("--other=1", "--dir")
	assert.False(t, ok)
}

func TestLanguageModelFromConfigUnknownProviderReturnsNil(t *testing.T) {
	cfg := mcaeconfig.DefaultConfig()
	cfg.LanguageModel.Provider = "does-not-exist"
	assert.Nil(t, languageModelFromConfig(cfg))
}

func TestLanguageModelFromConfigOllamaNeedsNoSecret(t *testing.T) {
	cfg := mcaeconfig.DefaultConfig()
	cfg.LanguageModel.Provider = "ollama"
	cfg.LanguageModel.Model = "llama3.1"
	assert.NotNil(t, languageModelFromConfig(cfg))
}
