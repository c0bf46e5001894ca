package completion

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// chatClient abstracts the OpenAI-compatible SDK so ladder behavior can be
// tested without network access.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// newClient builds a go-openai client for one credential. Groq exposes an
// OpenAI-compatible API, so the same client works against either endpoint via
// the base URL.
func newClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cfg)
}
