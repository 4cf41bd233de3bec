package replier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/store"
	"github.com/ibeckermayer/selectbot/internal/types"
)

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply(prompt)
}

func newTestReplier(t *testing.T, p *fakeProvider) (*Replier, *store.Cache, *string) {
	t.Helper()
	cfg := config.Default().Reply
	cache := store.NewCache(t.TempDir())
	r := New(cfg, cache, zap.NewNop())
	var usedKey string
	r.newProvider = func(_ config.ReplyConfig, apiKey string) (Provider, error) {
		usedKey = apiKey
		return p, nil
	}
	return r, cache, &usedKey
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("My post", "@bob", "Nice!", "Be kind.")
	assert.True(t, strings.HasPrefix(prompt, "You are replying to a comment on your Twitter post."))
	assert.Contains(t, prompt, "YOUR ORIGINAL POST:\n\"My post\"")
	assert.Contains(t, prompt, "Author: @bob\nComment: \"Nice!\"")
	assert.Contains(t, prompt, "INSTRUCTIONS:\nBe kind.\n\n")
	assert.True(t, strings.HasSuffix(prompt, "Only return the reply text, nothing else."))
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "Thanks!", CleanReply(`"Thanks!"`))
	assert.Equal(t, "Thanks!", CleanReply(`  'Thanks!'  `))
	assert.Equal(t, `"Quoted" inside`, CleanReply(`""Quoted" inside"`))
	assert.Equal(t, "It's fine", CleanReply("It's fine"))
}

func TestGenerate(t *testing.T) {
	p := &fakeProvider{reply: func(string) (string, error) { return `"Thanks Bob!"`, nil }}
	r, cache, usedKey := newTestReplier(t, p)

	reply, err := r.Generate(context.Background(), Request{
		PostText:      "My post",
		CommentAuthor: "@bob",
		CommentText:   "Nice!",
		APIKey:        "sk-req",
		Instructions:  "Be kind.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Thanks Bob!", reply)
	assert.Equal(t, "sk-req", *usedKey)
	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], "Be kind.")

	ex, _, err := store.LoadLatestStepOutput[store.LLMExchange](cache, store.StepLLM)
	require.NoError(t, err)
	assert.Equal(t, `"Thanks Bob!"`, ex.Response)
	assert.Equal(t, "fake", ex.Provider)
}

func TestGenerateRequiresKeyAndInstructions(t *testing.T) {
	p := &fakeProvider{reply: func(string) (string, error) { return "x", nil }}
	r, _, _ := newTestReplier(t, p)

	_, err := r.Generate(context.Background(), Request{Instructions: "Be kind."})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.EqualError(t, err, "DeepSeek API key is required. Please enter your API key in the settings.")

	r.cfg.Instructions = ""
	_, err = r.Generate(context.Background(), Request{APIKey: "sk", Instructions: "  "})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.Contains(t, err.Error(), "AI instructions are required")
	assert.Empty(t, p.prompts)
}

func TestGenerateFallsBackToConfig(t *testing.T) {
	p := &fakeProvider{reply: func(string) (string, error) { return "ok", nil }}
	r, _, usedKey := newTestReplier(t, p)
	r.cfg.APIKey = "sk-config"

	_, err := r.Generate(context.Background(), Request{PostText: "p", CommentText: "c"})
	require.NoError(t, err)
	assert.Equal(t, "sk-config", *usedKey)
	assert.Contains(t, p.prompts[0], config.DefaultInstructions)
}

func TestGenerateProviderErrors(t *testing.T) {
	p := &fakeProvider{reply: func(string) (string, error) { return "", &types.APIError{StatusCode: 429} }}
	r, cache, _ := newTestReplier(t, p)

	_, err := r.Generate(context.Background(), Request{APIKey: "sk", Instructions: "i"})
	assert.EqualError(t, err, "API rate limit exceeded. Please try again later.")

	ex, _, err := store.LoadLatestStepOutput[store.LLMExchange](cache, store.StepLLM)
	require.NoError(t, err)
	assert.NotEmpty(t, ex.Error, "failed exchanges are cached too")

	p.reply = func(string) (string, error) { return ` "" `, nil }
	_, err = r.Generate(context.Background(), Request{APIKey: "sk", Instructions: "i"})
	assert.ErrorContains(t, err, "empty reply")
}

func TestGenerateBatch(t *testing.T) {
	p := &fakeProvider{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "@mallory") {
			return "", errors.New("content filtered")
		}
		return "Thanks!", nil
	}}
	r, _, _ := newTestReplier(t, p)

	comments := []types.Comment{
		{ID: "1", Author: "@bob", Text: "Nice"},
		{ID: "2", Author: "@mallory", Text: "Spam"},
		{ID: "3", Author: "@carol", Text: "Cool"},
	}
	results, err := r.GenerateBatch(context.Background(), BatchRequest{
		PostText: "My post", Comments: comments, APIKey: "sk", Instructions: "i",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, BatchReply{CommentID: "1", Author: "@bob", Reply: "Thanks!"}, results[0])
	assert.Equal(t, "2", results[1].CommentID)
	assert.Equal(t, "content filtered", results[1].Error)
	assert.Empty(t, results[1].Reply)
	assert.Equal(t, "Thanks!", results[2].Reply)
	assert.Len(t, p.prompts, 3)
}

func TestGenerateBatchAbortsOnInvalidKey(t *testing.T) {
	p := &fakeProvider{reply: func(string) (string, error) { return "", &types.APIError{StatusCode: 401} }}
	r, _, _ := newTestReplier(t, p)

	_, err := r.GenerateBatch(context.Background(), BatchRequest{
		Comments: []types.Comment{{ID: "1"}, {ID: "2"}}, APIKey: "sk", Instructions: "i",
	})
	assert.EqualError(t, err, "Invalid API key. Please check your API key.")
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default().Reply

	p, err := NewProvider(cfg, "sk")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", p.Name())
	assert.Equal(t, "deepseek-chat", p.Model())

	cfg.Provider = config.ProviderAnthropic
	p, err = NewProvider(cfg, "sk")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.NotEqual(t, "deepseek-chat", p.Model())

	cfg.Provider = "bogus"
	_, err = NewProvider(cfg, "sk")
	assert.Error(t, err)
}
