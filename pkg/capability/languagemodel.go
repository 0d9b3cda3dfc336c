package capability

import "context"

// LanguageModel is the consumed capability spec §6 describes: the core
// never speaks a provider's wire protocol directly, only this
// interface. Test doubles implement it in-memory (internal/testdoubles);
// pkg/llmadapter provides real provider-backed implementations.
type LanguageModel interface {
	// Complete returns generated text for prompt, bounded by maxTokens
	// and shaped by temperature. Fails with an *LMError.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

	// EstimateCost is pure: no network call, no error path beyond
	// an unknown modelID.
	EstimateCost(inputTokens, outputTokens int, modelID string) (Money, error)
}

// Money is a fixed-point USD amount expressed in micro-dollars
// (millionths of a dollar), so aggregation is integer arithmetic rather
// than float addition.
type Money struct {
	MicroUSD int64
}

func (m Money) USD() float64 {
	return float64(m.MicroUSD) / 1_000_000
}

func USD(amount float64) Money {
	return Money{MicroUSD: int64(amount * 1_000_000)}
}
