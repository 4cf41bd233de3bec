package replier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/replier/providers"
	"github.com/ibeckermayer/selectbot/internal/store"
	"github.com/ibeckermayer/selectbot/internal/types"
)

// Provider defines the interface for completion providers
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request is one reply to generate
type Request struct {
	PostText      string
	CommentAuthor string
	CommentText   string
	// APIKey and Instructions fall back to the configured values when empty
	APIKey       string
	Instructions string
}

// BatchRequest asks for replies to several comments under one post
type BatchRequest struct {
	PostText     string
	Comments     []types.Comment
	APIKey       string
	Instructions string
}

// BatchReply is the outcome for one comment of a batch
type BatchReply struct {
	CommentID string `json:"commentId"`
	Author    string `json:"author"`
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Replier generates replies to comments with an LLM
type Replier struct {
	cfg    config.ReplyConfig
	cache  *store.Cache
	logger *zap.Logger

	newProvider func(cfg config.ReplyConfig, apiKey string) (Provider, error)
}

// New creates a replier. cache may be nil to skip recording exchanges.
func New(cfg config.ReplyConfig, cache *store.Cache, logger *zap.Logger) *Replier {
	return &Replier{
		cfg:         cfg,
		cache:       cache,
		logger:      logger.Named("replier"),
		newProvider: NewProvider,
	}
}

// NewProvider builds the configured provider for apiKey
func NewProvider(cfg config.ReplyConfig, apiKey string) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderDeepSeek, "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = providers.DeepSeekBaseURL
		}
		return providers.NewOpenAIProvider(config.ProviderDeepSeek, apiKey, baseURL, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case config.ProviderOpenAI:
		return providers.NewOpenAIProvider(config.ProviderOpenAI, apiKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	case config.ProviderAnthropic:
		model := cfg.Model
		if strings.HasPrefix(model, "deepseek") {
			model = ""
		}
		return providers.NewAnthropicProvider(apiKey, model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

func (r *Replier) resolve(apiKey, instructions string) (string, string, error) {
	if apiKey == "" {
		apiKey = r.cfg.APIKey
	}
	if instructions == "" {
		instructions = r.cfg.Instructions
	}
	if apiKey == "" {
		return "", "", types.InvalidInput("DeepSeek API key is required. Please enter your API key in the settings.")
	}
	if strings.TrimSpace(instructions) == "" {
		return "", "", types.InvalidInput("AI instructions are required. Please enter instructions for how the AI should reply.")
	}
	return apiKey, instructions, nil
}

// Generate writes a reply to one comment
func (r *Replier) Generate(ctx context.Context, req Request) (string, error) {
	apiKey, instructions, err := r.resolve(req.APIKey, req.Instructions)
	if err != nil {
		return "", err
	}
	provider, err := r.newProvider(r.cfg, apiKey)
	if err != nil {
		return "", err
	}
	return r.generate(ctx, provider, BuildPrompt(req.PostText, req.CommentAuthor, req.CommentText, instructions))
}

func (r *Replier) generate(ctx context.Context, provider Provider, prompt string) (string, error) {
	r.logger.Info("Generating AI reply",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()))

	raw, err := provider.Complete(ctx, prompt)
	r.record(provider, prompt, raw, err)
	if err != nil {
		return "", err
	}

	reply := CleanReply(raw)
	if reply == "" {
		return "", fmt.Errorf("invalid response from %s API: empty reply", provider.Name())
	}
	r.logger.Info("AI reply generated", zap.Int("length", len([]rune(reply))))
	return reply, nil
}

// record caches the prompt/response for debugging
func (r *Replier) record(provider Provider, prompt, response string, callErr error) {
	if r.cache == nil {
		return
	}
	exchange := store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  provider.Name(),
		Model:     provider.Model(),
		Prompt:    prompt,
		Response:  response,
	}
	if callErr != nil {
		exchange.Error = callErr.Error()
	}
	if path, err := r.cache.SaveLLMExchange(exchange); err != nil {
		r.logger.Warn("Failed to cache LLM exchange", zap.Error(err))
	} else {
		r.logger.Debug("Cached LLM exchange", zap.String("path", path))
	}
}

// GenerateBatch writes replies to several comments concurrently. Failures of
// individual comments are reported in their BatchReply; an invalid API key
// aborts the whole batch.
func (r *Replier) GenerateBatch(ctx context.Context, req BatchRequest) ([]BatchReply, error) {
	apiKey, instructions, err := r.resolve(req.APIKey, req.Instructions)
	if err != nil {
		return nil, err
	}
	provider, err := r.newProvider(r.cfg, apiKey)
	if err != nil {
		return nil, err
	}

	results := make([]BatchReply, len(req.Comments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Concurrency, 1))

	for i, c := range req.Comments {
		results[i] = BatchReply{CommentID: c.ID, Author: c.Author}
		g.Go(func() error {
			reply, err := r.generate(ctx, provider, BuildPrompt(req.PostText, c.Author, c.Text, instructions))
			if err != nil {
				var apiErr *types.APIError
				if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
					return err
				}
				results[i].Error = err.Error()
				return nil
			}
			results[i].Reply = reply
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
