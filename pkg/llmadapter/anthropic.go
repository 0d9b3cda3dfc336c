package llmadapter

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// AnthropicModel implements capability.LanguageModel against the
// Anthropic Messages API. Adapted from the teacher's ClaudeClient
// (pkg/agent/internal/llmimpl/anthropic/client.go): same SDK client
// construction and classifyError status-code mapping, but targeting a
// single flat prompt instead of a multi-turn alternating history,
// since the orchestrator only ever calls Complete with one fully
// composed prompt string (spec §6).
type AnthropicModel struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicModel(apiKey, model string) *AnthropicModel {
	return &AnthropicModel{
		client: anthropic.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		model:  anthropic.Model(model),
	}
}

func (a *AnthropicModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", capability.NewLMError(capability.LMServer, "empty response from Claude API", 0, nil)
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	return text.String(), nil
}

func (a *AnthropicModel) EstimateCost(inputTokens, outputTokens int, modelID string) (capability.Money, error) {
	return estimateCost(modelID, inputTokens, outputTokens)
}

// classifyAnthropicError maps SDK errors to LMError kinds, same
// status-code-from-message heuristic as the teacher's classifyError.
func classifyAnthropicError(err error) *capability.LMError {
	if errors.Is(err, context.DeadlineExceeded) {
		return capability.NewLMError(capability.LMTimeout, "request timeout", 0, err)
	}
	if errors.Is(err, context.Canceled) {
		return capability.NewLMError(capability.LMTimeout, "request canceled", 0, err)
	}

	statusCode := extractStatusCode(err.Error())
	switch statusCode {
	case 401, 403:
		return capability.NewLMError(capability.LMAuth, "authentication failed", statusCode, err)
	case 429:
		return capability.NewLMError(capability.LMRateLimited, "rate limit exceeded", statusCode, err)
	case 500, 502, 503, 504:
		return capability.NewLMError(capability.LMServer, "server error", statusCode, err)
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return capability.NewLMError(capability.LMNetwork, "network error", 0, err)
	}
	return capability.NewLMError(capability.LMServer, "unclassified error", statusCode, err)
}

// extractStatusCode pulls a leading 3-digit HTTP status code out of an
// SDK error string, matching the convention Anthropic's Go SDK uses
// ("... 429 Too Many Requests ...").
func extractStatusCode(errStr string) int {
	for _, word := range strings.Fields(errStr) {
		if len(word) == 3 {
			if code, err := strconv.Atoi(word); err == nil && code >= 400 && code < 600 {
				return code
			}
		}
	}
	return 0
}
