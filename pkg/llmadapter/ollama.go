package llmadapter

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/maestro-labs/mcae/pkg/capability"
)

// OllamaModel implements capability.LanguageModel against a local
// Ollama server. Adapted from the teacher's ollama.Client
// (pkg/agent/internal/llmimpl/ollama/client.go): same *api.Client
// construction and non-streaming api.ChatRequest call, collapsed to a
// single user message since the orchestrator only ever sends one
// composed prompt.
type OllamaModel struct {
	client *api.Client
	model  string
}

func NewOllamaModel(hostURL, model string) *OllamaModel {
	parsed, err := url.Parse(hostURL)
	if err != nil {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaModel{client: api.NewClient(parsed, http.DefaultClient), model: model}
}

func (o *OllamaModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return "", classifyOllamaError(err)
	}
	return response.Message.Content, nil
}

func (o *OllamaModel) EstimateCost(inputTokens, outputTokens int, modelID string) (capability.Money, error) {
	return estimateCost(modelID, inputTokens, outputTokens)
}

// classifyOllamaError has no HTTP status codes to parse (the client
// runs locally); it distinguishes connection failures from everything
// else, matching the teacher's ollama.classifyError fallback branch.
func classifyOllamaError(err error) *capability.LMError {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return capability.NewLMError(capability.LMNetwork, "ollama server unreachable", 0, err)
	}
	if strings.Contains(errStr, "model") && strings.Contains(errStr, "not found") {
		return capability.NewLMError(capability.LMServer, "model not pulled", 0, err)
	}
	return capability.NewLMError(capability.LMServer, "ollama request failed", 0, err)
}

var _ capability.LanguageModel = (*OllamaModel)(nil)
