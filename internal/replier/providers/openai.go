package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ibeckermayer/selectbot/internal/types"
)

// DeepSeekBaseURL is the OpenAI-compatible DeepSeek endpoint
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// OpenAIProvider talks to any OpenAI-compatible chat completion API
// (DeepSeek, OpenAI)
type OpenAIProvider struct {
	client      *openai.Client
	provider    string // e.g. "deepseek"
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a provider; an empty baseURL keeps the client default
func NewOpenAIProvider(provider, apiKey, baseURL, model string, maxTokens int, temperature float32) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		provider:    provider,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (p *OpenAIProvider) Name() string  { return p.provider }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends prompt as a single user message and returns the reply text
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("invalid response from %s API: no choices returned", p.provider)
	}
	return resp.Choices[0].Message.Content, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &types.APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &types.APIError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return fmt.Errorf("failed to call completion API: %w", err)
}
