package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/ollama/ollama/api"
)

// OllamaAdapter invokes a local Ollama runtime. Unlike the hosted
// providers it has no API-key gate — its failure mode is connection
// refused when no server is running, which drives fallback the same way.
type OllamaAdapter struct {
	client *api.Client
	model  string
}

// NewOllamaAdapter builds an adapter against hostURL (defaults to
// OLLAMA_HOST or http://localhost:11434).
func NewOllamaAdapter(hostURL, model string) *OllamaAdapter {
	if hostURL == "" {
		hostURL = os.Getenv("OLLAMA_HOST")
	}
	if hostURL == "" {
		hostURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(hostURL)
	if err != nil {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaAdapter{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}
}

func (a *OllamaAdapter) Invoke(ctx context.Context, args Args) (string, error) {
	var messages []api.Message
	if args.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: args.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: args.Input})

	stream := false
	req := &api.ChatRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   &stream,
	}

	var out string
	err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if out == "" {
		return "", fmt.Errorf("ollama: empty response")
	}
	return out, nil
}
