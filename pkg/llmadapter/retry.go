package llmadapter

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// RetryConfig mirrors the teacher's pkg/agent/resilience.RetryConfig
// shape, reparameterized to spec §7's exact numeric policy:
// LMError::RateLimited gets 3 attempts at 1s/2s/4s.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfig implements spec §7's retry policy for
// LMError::RateLimited.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:    3,
	InitialDelay:  time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// WithRetry wraps a LanguageModel so RateLimited failures are retried
// with bounded exponential backoff; every other LMError kind surfaces
// immediately, matching spec §7's propagation policy ("degraded,
// logged, not surfaced" for everything else is the orchestrator's job,
// not the adapter's).
func WithRetry(lm capability.LanguageModel, cfg RetryConfig) capability.LanguageModel {
	return &retryingModel{lm: lm, cfg: cfg}
}

type retryingModel struct {
	lm  capability.LanguageModel
	cfg RetryConfig
}

func (r *retryingModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", capability.NewLMError(capability.LMTimeout, "retry cancelled", 0, ctx.Err())
			case <-time.After(r.delay(attempt)):
			}
		}

		text, err := r.lm.Complete(ctx, prompt, maxTokens, temperature)
		if err == nil {
			return text, nil
		}
		lastErr = err

		lmErr, ok := capability.AsLMError(err)
		if !ok || lmErr.Kind != capability.LMRateLimited {
			return "", err
		}
	}
	return "", lastErr
}

func (r *retryingModel) EstimateCost(inputTokens, outputTokens int, modelID string) (capability.Money, error) {
	return r.lm.EstimateCost(inputTokens, outputTokens, modelID)
}

func (r *retryingModel) delay(attempt int) time.Duration {
	d := time.Duration(float64(r.cfg.InitialDelay) * math.Pow(r.cfg.BackoffFactor, float64(attempt-1)))
	if !r.cfg.Jitter {
		return d
	}
	jitter := time.Duration((rand.Float64()*0.2 - 0.1) * float64(d))
	return d + jitter
}

var _ capability.LanguageModel = (*retryingModel)(nil)
