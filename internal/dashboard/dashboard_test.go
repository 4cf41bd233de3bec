package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/app"
	"github.com/ibeckermayer/selectbot/internal/auth"
	"github.com/ibeckermayer/selectbot/internal/bot"
	"github.com/ibeckermayer/selectbot/internal/browser/browsertest"
	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/store"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	t.Setenv("SELECTBOT_API_KEY", "sk-env")
	path := filepath.Join(t.TempDir(), "selectbot", "config.toml")

	cfg, created, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "sk-env", cfg.Reply.APIKey)

	// The environment key is not persisted
	saved, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, saved.Reply.APIKey)

	_, created, err = LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0600))

	_, _, err := LoadConfig(path)
	assert.Error(t, err)
}

const loggedInProfile = `<html><body>
<nav><a data-testid="AppTabBar_Profile_Link" href="/alice">Profile</a></nav>
<article data-testid="tweet">
  <a href="/alice/status/111"><time datetime="2024-06-01T12:00:00.000Z">Jun 1</time></a>
  <div data-testid="tweetText">Shipping the new reply dashboard today</div>
</article>
</body></html>`

func TestCookieSessionConnectsWithoutCredentials(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "selectbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	page := browsertest.New()
	page.Show(auth.LoggedInIndicators[0])
	page.Content = loggedInProfile
	cookies := auth.NewCookieStore(filepath.Join(dir, "cookies.json"))

	factory := func(_ context.Context, cfg *config.Config) (app.Bot, error) {
		return bot.New(page, nil, cfg, cookies, nil, zap.NewNop()), nil
	}
	a := app.New(config.Default(), factory, st, nil, zap.NewNop())
	ctx := context.Background()

	msg, err := a.Connect(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, app.MsgConnected, msg)
	status := a.Status()
	require.NotNil(t, status.Username)
	assert.Equal(t, "alice", *status.Username)

	posts, err := a.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "https://x.com/alice", page.URL)
	assert.Equal(t, "https://x.com/alice/status/111", posts[0].URL)
}
