package provider

import (
	"context"
	"fmt"
	"os"
	"sync"

	"google.golang.org/genai"
)

// GeminiAdapter invokes Google's Gemini models. The underlying client
// requires a context to construct, so it is created lazily on first use
// rather than at adapter construction time.
type GeminiAdapter struct {
	mu     sync.Mutex
	client *genai.Client
	model  string
}

// NewGeminiAdapter builds an adapter reading GEMINI_API_KEY.
func NewGeminiAdapter(model string) *GeminiAdapter {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiAdapter{model: model}
}

func (a *GeminiAdapter) Invoke(ctx context.Context, args Args) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("gemini: GEMINI_API_KEY not configured")
	}

	a.mu.Lock()
	if a.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			a.mu.Unlock()
			return "", fmt.Errorf("gemini: create client: %w", err)
		}
		a.client = client
	}
	client := a.client
	a.mu.Unlock()

	var config *genai.GenerateContentConfig
	if args.System != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: args.System}},
			},
		}
	}

	resp, err := client.Models.GenerateContent(ctx, a.model, genai.Text(args.Input), config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}
