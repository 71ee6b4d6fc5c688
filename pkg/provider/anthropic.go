package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter invokes Claude via the official Anthropic SDK. It is
// registered under both "anthropic" and the alias "claude" (spec.md §4.1).
type AnthropicAdapter struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicAdapter builds an adapter reading ANTHROPIC_API_KEY. The
// adapter is still constructed when the key is absent — Invoke fails at
// call time, which is what drives the dispatcher's fallback chain.
func NewAnthropicAdapter(model string) *AnthropicAdapter {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &AnthropicAdapter{client: client, model: anthropic.Model(model)}
}

func (a *AnthropicAdapter) Invoke(ctx context.Context, args Args) (string, error) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return "", fmt.Errorf("anthropic: ANTHROPIC_API_KEY not configured")
	}

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(args.Input)),
		},
	}
	if args.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: args.System}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: empty response")
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("anthropic: no text content in response")
	}
	return out, nil
}
