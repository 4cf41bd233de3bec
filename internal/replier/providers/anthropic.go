package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ibeckermayer/selectbot/internal/types"
)

// DefaultAnthropicModel is used when the config still names a DeepSeek model
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicProvider writes replies with Anthropic's Claude API
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider creates a new Anthropic provider. opts are appended to
// the client options (tests point the base URL at a local server).
func NewAnthropicProvider(apiKey, model string, maxTokens int, opts ...option.RequestOption) *AnthropicProvider {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicProvider{
		client:    &client,
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (c *AnthropicProvider) Name() string  { return "anthropic" }
func (c *AnthropicProvider) Model() string { return c.model }

// Complete sends prompt to Claude and returns the first text block
func (c *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &types.APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return "", fmt.Errorf("failed to call Claude API: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("Claude returned empty response")
}
