package llmadapter

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// GenaiModel implements capability.LanguageModel against the Google
// Gemini API. Adapted from the teacher's GeminiClient
// (pkg/agent/internal/llmimpl/google/client.go): lazy client creation
// on first Complete call, genai.GenerateContentConfig for
// temperature/max-tokens, single-turn content instead of the
// teacher's thought-signature response cache (MCAE's prompts are
// always fully composed up front, never a continuing tool-use turn).
type GenaiModel struct {
	client *genai.Client
	apiKey string
	model  string
}

func NewGenaiModel(apiKey, model string) *GenaiModel {
	return &GenaiModel{apiKey: apiKey, model: model}
}

func (g *GenaiModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if g.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: g.apiKey, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return "", capability.NewLMError(capability.LMNetwork, "create genai client", 0, err)
		}
		g.client = client
	}

	temp := float32(temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxTokens),
	}

	contents := []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}, Role: "user"}}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", classifyGenaiError(err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", capability.NewLMError(capability.LMServer, "empty response from Gemini API", 0, nil)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

func (g *GenaiModel) EstimateCost(inputTokens, outputTokens int, modelID string) (capability.Money, error) {
	return estimateCost(modelID, inputTokens, outputTokens)
}

func classifyGenaiError(err error) *capability.LMError {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "resource exhausted") || strings.Contains(errStr, "quota"):
		return capability.NewLMError(capability.LMRateLimited, "rate limit exceeded", 429, err)
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "403") || strings.Contains(errStr, "permission"):
		return capability.NewLMError(capability.LMAuth, "authentication failed", 0, err)
	case strings.Contains(errStr, "deadline") || strings.Contains(errStr, "timeout"):
		return capability.NewLMError(capability.LMTimeout, "request timeout", 0, err)
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "503"):
		return capability.NewLMError(capability.LMServer, "server error", 0, err)
	default:
		return capability.NewLMError(capability.LMNetwork, fmt.Sprintf("genai request failed: %v", err), 0, err)
	}
}

var _ capability.LanguageModel = (*GenaiModel)(nil)
