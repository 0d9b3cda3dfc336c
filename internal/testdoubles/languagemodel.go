// Package testdoubles provides in-memory LanguageModel and DocumentStore
// implementations for tests, matching spec §9's requirement that tests
// compose the core's concrete types with in-memory capability doubles.
package testdoubles

import (
	"context"
	"sync"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// LanguageModel is a scriptable in-memory capability.LanguageModel.
type LanguageModel struct {
	mu           sync.Mutex
	CompleteFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	Calls        []CompleteCall
}

type CompleteCall struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

func NewLanguageModel() *LanguageModel {
	return &LanguageModel{
		CompleteFunc: func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
			return "summary of: " + prompt, nil
		},
	}
}

func (m *LanguageModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, CompleteCall{Prompt: prompt, MaxTokens: maxTokens, Temperature: temperature})
	m.mu.Unlock()
	return m.CompleteFunc(ctx, prompt, maxTokens, temperature)
}

func (m *LanguageModel) EstimateCost(inputTokens, outputTokens int, modelID string) (capability.Money, error) {
	return capability.USD(float64(inputTokens+outputTokens) * 0.000002), nil
}

func (m *LanguageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ capability.LanguageModel = (*LanguageModel)(nil)
