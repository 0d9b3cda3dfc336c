package llmadapter

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// OpenAIModel implements capability.LanguageModel against the Chat
// Completions API. Grounded on intelligencedev-manifold's
// internal/llm/openai_client.go CallLLM (the pack's simpler Chat
// Completions adapter, chosen over the teacher's Responses-API
// adapter since MCAE has no reasoning-effort/tool-calling surface to
// justify the heavier API), with the teacher's own
// isThinkingModel-style MaxCompletionTokens branch for o-series models
// adapted from pkg/agent/internal/llmimpl/openaiofficial/client.go.
type OpenAIModel struct {
	client openai.Client
	model  string
}

func NewOpenAIModel(apiKey, model string) *OpenAIModel {
	return &OpenAIModel{client: openai.NewClient(option.WithAPIKey(apiKey)), model: model}
}

func (o *OpenAIModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: param.NewOpt(temperature),
	}
	if isThinkingModel(o.model) {
		params.MaxCompletionTokens = param.NewOpt(int64(maxTokens))
	} else {
		params.MaxTokens = param.NewOpt(int64(maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", capability.NewLMError(capability.LMServer, "no choices returned", 0, nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIModel) EstimateCost(inputTokens, outputTokens int, modelID string) (capability.Money, error) {
	return estimateCost(modelID, inputTokens, outputTokens)
}

// isThinkingModel matches the "o<int>-*" reasoning-model naming
// convention (o1-pro, o4-mini, ...), which requires
// MaxCompletionTokens instead of MaxTokens.
func isThinkingModel(model string) bool {
	model = strings.ToLower(model)
	if !strings.HasPrefix(model, "o") {
		return false
	}
	rest := model[1:]
	i := 0
	for ; i < len(rest) && rest[i] >= '0' && rest[i] <= '9'; i++ {
	}
	return i > 0 && i < len(rest) && rest[i] == '-'
}

func classifyOpenAIError(err error) *capability.LMError {
	errStr := err.Error()
	statusCode := extractStatusCode(errStr)
	switch statusCode {
	case 401, 403:
		return capability.NewLMError(capability.LMAuth, "authentication failed", statusCode, err)
	case 429:
		return capability.NewLMError(capability.LMRateLimited, "rate limit exceeded", statusCode, err)
	case 500, 502, 503, 504:
		return capability.NewLMError(capability.LMServer, "server error", statusCode, err)
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return capability.NewLMError(capability.LMTimeout, "request timeout", 0, err)
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return capability.NewLMError(capability.LMNetwork, "network error", 0, err)
	}
	return capability.NewLMError(capability.LMServer, "unclassified error", statusCode, err)
}

var _ capability.LanguageModel = (*OpenAIModel)(nil)
