package llmadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-labs/mcae/pkg/capability"
)

func TestExtractStatusCode(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"429 Too Many Requests", 429},
		{"Error: server returned 503 Service Unavailable", 503},
		{"connection refused", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, extractStatusCode(c.in))
	}
}

func TestIsThinkingModel(t *testing.T) {
	assert.True(t, isThinkingModel("o1-pro"))
	assert.True(t, isThinkingModel("o4-mini"))
	assert.False(t, isThinkingModel("gpt-5"))
	assert.False(t, isThinkingModel("o"))
}

func TestEstimateCostKnownModel(t *testing.T) {
	cost, err := estimateCost("claude-sonnet-4-20250514", 1_000_000, 0)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, cost.USD(), 0.0001)
}

func TestEstimateCostUnknownModelFallsBackToDefault(t *testing.T) {
	cost, err := estimateCost("some-future-model", 1_000_000, 0)
	require.NoError(t, err)
	assert.InDelta(t, defaultInputCPM, cost.USD(), 0.0001)
}

type fakeLM struct {
	calls   int
	fail    []error
	succeed string
}

func (f *fakeLM) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.fail) {
		return "", f.fail[idx]
	}
	return f.succeed, nil
}

func (f *fakeLM) EstimateCost(inputTokens, outputTokens int, modelID string) (capability.Money, error) {
	return capability.Money{}, nil
}

func TestWithRetryRetriesRateLimitedThenSucceeds(t *testing.T) {
	lm := &fakeLM{
		fail:    []error{capability.NewLMError(capability.LMRateLimited, "slow down", 429, errors.New("429"))},
		succeed: "done",
	}
	retrying := WithRetry(lm, RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffFactor: 2, Jitter: false})

	text, err := retrying.Complete(context.Background(), "hi", 10, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, 2, lm.calls)
}

func TestWithRetryDoesNotRetryAuthError(t *testing.T) {
	lm := &fakeLM{
		fail: []error{capability.NewLMError(capability.LMAuth, "bad key", 401, errors.New("401"))},
	}
	retrying := WithRetry(lm, DefaultRetryConfig)

	_, err := retrying.Complete(context.Background(), "hi", 10, 0.2)
	require.Error(t, err)
	assert.Equal(t, 1, lm.calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	rateLimited := capability.NewLMError(capability.LMRateLimited, "slow down", 429, errors.New("429"))
	lm := &fakeLM{fail: []error{rateLimited, rateLimited, rateLimited, rateLimited}}
	retrying := WithRetry(lm, RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffFactor: 2, Jitter: false})

	_, err := retrying.Complete(context.Background(), "hi", 10, 0.2)
	require.Error(t, err)
	assert.Equal(t, 4, lm.calls)
}
