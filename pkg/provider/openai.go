package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter invokes the Chat Completions API via the official OpenAI
// Go SDK.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

// NewOpenAIAdapter builds an adapter reading OPENAI_API_KEY.
func NewOpenAIAdapter(model string) *OpenAIAdapter {
	apiKey := os.Getenv("OPENAI_API_KEY")
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIAdapter{client: client, model: model}
}

func (a *OpenAIAdapter) Invoke(ctx context.Context, args Args) (string, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return "", fmt.Errorf("openai: OPENAI_API_KEY not configured")
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if args.System != "" {
		messages = append(messages, openai.SystemMessage(args.System))
	}
	messages = append(messages, openai.UserMessage(args.Input))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("openai: empty content in response")
	}
	return content, nil
}
