package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/replier"
	"github.com/ibeckermayer/selectbot/internal/store"
	"github.com/ibeckermayer/selectbot/internal/types"
)

type fakeBot struct {
	mu sync.Mutex

	loginErr    error
	loginGate   chan struct{}
	loggedInAs  string
	password    string
	posts       []types.Post
	postsErr    error
	comments    []types.Comment
	commentsErr error
	replyErr    error
	sessionOK   bool
	// handle is what the tab shows after a cookie login
	handle string

	handles  []string
	replied  []string
	commentQ []string
	closed   int
}

func (b *fakeBot) Login(ctx context.Context, username, password string) error {
	if b.loginGate != nil {
		select {
		case <-b.loginGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loggedInAs = username
	b.password = password
	return b.loginErr
}

func (b *fakeBot) CheckSession(context.Context) bool { return b.sessionOK }

func (b *fakeBot) Posts(_ context.Context, handle string, _ int) ([]types.Post, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles = append(b.handles, handle)
	return b.posts, b.postsErr
}

func (b *fakeBot) Comments(_ context.Context, postURL string, _ int) ([]types.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commentQ = append(b.commentQ, postURL)
	return b.comments, b.commentsErr
}

func (b *fakeBot) Reply(_ context.Context, postURL, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.replyErr != nil {
		return b.replyErr
	}
	b.replied = append(b.replied, postURL+" "+text)
	return nil
}

func (b *fakeBot) CurrentHandle(context.Context) (string, error) {
	return b.handle, nil
}

func (b *fakeBot) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func newTestApp(t *testing.T, bot *fakeBot) (*App, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "selectbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	factory := func(context.Context, *config.Config) (Bot, error) { return bot, nil }
	return New(cfg, factory, st, store.NewCache(filepath.Join(dir, "cache")), zap.NewNop()), st
}

func samplePosts() []types.Post {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []types.Post{
		{ID: "1", Text: "First post about shipping", URL: "https://x.com/alice/status/1", Time: now, ScrapedAt: now},
		{ID: "tweet_2", Text: "A post without a link", URL: "", Time: now, ScrapedAt: now},
	}
}

func TestConnect(t *testing.T) {
	bot := &fakeBot{}
	a, _ := newTestApp(t, bot)

	msg, err := a.Connect(context.Background(), "@alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, MsgConnected, msg)
	assert.Equal(t, "alice", bot.loggedInAs)

	status := a.Status()
	assert.True(t, status.Connected)
	require.NotNil(t, status.Username)
	assert.Equal(t, "alice", *status.Username)

	msg, err = a.Connect(context.Background(), "bob", "other")
	require.NoError(t, err)
	assert.Equal(t, MsgAlreadyConnected, msg)
	assert.Equal(t, "alice", bot.loggedInAs)
}

func TestConnectFallsBackToConfiguredAccount(t *testing.T) {
	bot := &fakeBot{}
	a, _ := newTestApp(t, bot)
	a.config.Account = config.AccountConfig{Username: "carol", Password: "pw"}

	_, err := a.Connect(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "carol", bot.loggedInAs)
	assert.Equal(t, "pw", bot.password)
}

func TestConnectWithCookieSessionReadsHandle(t *testing.T) {
	bot := &fakeBot{handle: "alice", posts: samplePosts()}
	a, _ := newTestApp(t, bot)

	msg, err := a.Connect(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, MsgConnected, msg)

	status := a.Status()
	require.NotNil(t, status.Username)
	assert.Equal(t, "alice", *status.Username)

	_, err = a.Posts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, bot.handles)
}

func TestConnectWithoutHandleFails(t *testing.T) {
	bot := &fakeBot{}
	a, _ := newTestApp(t, bot)

	_, err := a.Connect(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.Equal(t, 1, bot.closed)
	assert.False(t, a.Connected())
}

func TestConnectFailureClosesBot(t *testing.T) {
	bot := &fakeBot{loginErr: types.ErrTwoFactorTimeout}
	a, _ := newTestApp(t, bot)

	_, err := a.Connect(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, types.ErrTwoFactorTimeout)
	assert.Equal(t, 1, bot.closed)
	assert.False(t, a.Connected())
}

func TestConnectFactoryError(t *testing.T) {
	a, _ := newTestApp(t, &fakeBot{})
	a.newBot = func(context.Context, *config.Config) (Bot, error) {
		return nil, errors.New("chrome not found")
	}

	_, err := a.Connect(context.Background(), "alice", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
}

func TestStatusDoesNotWaitForLogin(t *testing.T) {
	bot := &fakeBot{loginGate: make(chan struct{})}
	a, _ := newTestApp(t, bot)

	done := make(chan error, 1)
	go func() {
		_, err := a.Connect(context.Background(), "alice", "secret")
		done <- err
	}()

	statusDone := make(chan types.Status, 1)
	go func() { statusDone <- a.Status() }()
	select {
	case s := <-statusDone:
		assert.False(t, s.Connected)
		assert.Nil(t, s.Username)
	case <-time.After(2 * time.Second):
		t.Fatal("Status blocked on login")
	}

	close(bot.loginGate)
	require.NoError(t, <-done)
	assert.True(t, a.Connected())
}

func TestDisconnect(t *testing.T) {
	bot := &fakeBot{}
	a, _ := newTestApp(t, bot)

	require.NoError(t, a.Disconnect(), "no-op when not connected")

	_, err := a.Connect(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, a.Disconnect())
	assert.Equal(t, 1, bot.closed)
	assert.False(t, a.Status().Connected)
}

func TestDisconnectCancelsLogin(t *testing.T) {
	bot := &fakeBot{loginGate: make(chan struct{})}
	a, _ := newTestApp(t, bot)

	done := make(chan error, 1)
	go func() {
		_, err := a.Connect(context.Background(), "alice", "secret")
		done <- err
	}()

	require.Eventually(t, func() bool {
		a.mu.RLock()
		defer a.mu.RUnlock()
		return a.cancelLogin != nil
	}, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- a.Disconnect() }()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect blocked on a pending login")
	}

	assert.ErrorIs(t, <-done, ErrLoginCancelled)
	assert.Equal(t, 1, bot.closed)
	assert.False(t, a.Connected())

	a.mu.RLock()
	assert.Nil(t, a.cancelLogin)
	a.mu.RUnlock()
}

func TestPosts(t *testing.T) {
	bot := &fakeBot{posts: samplePosts()}
	a, st := newTestApp(t, bot)

	_, err := a.Posts(context.Background())
	assert.ErrorIs(t, err, types.ErrNotConnected)

	_, err = a.Connect(context.Background(), "alice", "secret")
	require.NoError(t, err)

	posts, err := a.Posts(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, []string{"alice"}, bot.handles)

	stored, err := st.GetPost("1")
	require.NoError(t, err)
	assert.Equal(t, "First post about shipping", stored.Text)

	cached, _, err := store.LoadLatestStepOutput[[]types.Post](a.cache, store.StepPosts)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestPostsCappedAtPostsPerLoad(t *testing.T) {
	many := make([]types.Post, 0, 8)
	for i := range 8 {
		many = append(many, types.Post{ID: string(rune('a' + i)), Text: "post text here", URL: "https://x.com/a/status/1"})
	}
	bot := &fakeBot{posts: many}
	a, _ := newTestApp(t, bot)
	_, err := a.Connect(context.Background(), "alice", "secret")
	require.NoError(t, err)

	posts, err := a.Posts(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 5)
}

func TestComments(t *testing.T) {
	bot := &fakeBot{
		posts: samplePosts(),
		comments: []types.Comment{
			{ID: "c1", Author: "@bob", Text: "Congrats!"},
		},
	}
	a, st := newTestApp(t, bot)
	ctx := context.Background()

	_, err := a.Connect(ctx, "alice", "secret")
	require.NoError(t, err)
	_, err = a.Posts(ctx)
	require.NoError(t, err)

	comments, err := a.Comments(ctx, "1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "1", comments[0].PostID)
	assert.Equal(t, []string{"https://x.com/alice/status/1"}, bot.commentQ)

	stored, err := st.GetComments("1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	t.Run("unknown post", func(t *testing.T) {
		comments, err := a.Comments(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, comments)
		assert.NotNil(t, comments)
	})

	t.Run("post without status url", func(t *testing.T) {
		comments, err := a.Comments(ctx, "tweet_2")
		require.NoError(t, err)
		assert.Empty(t, comments)
		assert.Len(t, bot.commentQ, 1)
	})

	t.Run("scrape failure", func(t *testing.T) {
		bot.commentsErr = errors.New("navigation timeout")
		comments, err := a.Comments(ctx, "1")
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("disconnected serves stored replies", func(t *testing.T) {
		require.NoError(t, a.Disconnect())
		scraped := len(bot.commentQ)

		comments, err := a.Comments(ctx, "1")
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "c1", comments[0].ID)
		assert.Equal(t, "Congrats!", comments[0].Text)
		assert.Len(t, bot.commentQ, scraped, "no scrape without a bot")
	})
}

func TestCommentsDisconnectedWithNothingStored(t *testing.T) {
	a, st := newTestApp(t, &fakeBot{})
	require.NoError(t, st.SavePosts(samplePosts()))

	comments, err := a.Comments(context.Background(), "1")
	require.NoError(t, err)
	assert.NotNil(t, comments)
	assert.Empty(t, comments)
}

func TestPostReply(t *testing.T) {
	bot := &fakeBot{}
	a, st := newTestApp(t, bot)
	ctx := context.Background()
	url := "https://x.com/alice/status/1"

	_, err := a.PostReply(ctx, url, "Thanks!", "c1")
	assert.ErrorIs(t, err, types.ErrNotConnected)

	_, err = a.Connect(ctx, "alice", "secret")
	require.NoError(t, err)

	_, err = a.PostReply(ctx, url, "", "c1")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.EqualError(t, err, "Reply text and post URL are required")

	_, err = a.PostReply(ctx, url, strings.Repeat("x", 281), "c1")
	assert.EqualError(t, err, "Reply text is too long (max 280 characters)")

	reply, err := a.PostReply(ctx, url, "Thanks!", "c1")
	require.NoError(t, err)
	assert.NotZero(t, reply.ID)
	assert.Equal(t, []string{url + " Thanks!"}, bot.replied)

	count, err := st.ReplyCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, a.Status().Replies)

	history, err := a.Replies(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "c1", history[0].CommentID)

	bot.replyErr = types.ErrReplyButton
	_, err = a.PostReply(ctx, url, "Again", "c2")
	assert.ErrorIs(t, err, types.ErrReplyButton)
	count, _ = st.ReplyCount()
	assert.Equal(t, 1, count)
}

func TestCheckSession(t *testing.T) {
	bot := &fakeBot{sessionOK: true}
	a, _ := newTestApp(t, bot)
	ctx := context.Background()

	require.NoError(t, a.CheckSession(ctx), "nothing to check when disconnected")

	_, err := a.Connect(ctx, "alice", "secret")
	require.NoError(t, err)
	require.NoError(t, a.CheckSession(ctx))
	assert.True(t, a.Connected())

	bot.sessionOK = false
	assert.ErrorIs(t, a.CheckSession(ctx), ErrSessionExpired)
	assert.False(t, a.Connected())
	assert.Equal(t, 1, bot.closed)
}

type alertRecorder struct{ users []string }

func (r *alertRecorder) SessionExpired(username string, _ time.Time) error {
	r.users = append(r.users, username)
	return nil
}

func TestCheckSessionAlerts(t *testing.T) {
	bot := &fakeBot{sessionOK: false}
	a, _ := newTestApp(t, bot)
	alerts := &alertRecorder{}
	a.SetAlerter(alerts)

	_, err := a.Connect(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.ErrorIs(t, a.CheckSession(context.Background()), ErrSessionExpired)
	assert.Equal(t, []string{"alice"}, alerts.users)
}

func TestCheckSessionSkipsWhileBusy(t *testing.T) {
	bot := &fakeBot{sessionOK: false}
	a, _ := newTestApp(t, bot)
	_, err := a.Connect(context.Background(), "alice", "secret")
	require.NoError(t, err)

	a.opMu.Lock()
	err = a.CheckSession(context.Background())
	a.opMu.Unlock()

	require.NoError(t, err)
	assert.True(t, a.Connected())
}

func TestGenerateReplyRequiresAPIKey(t *testing.T) {
	a, _ := newTestApp(t, &fakeBot{})
	_, err := a.GenerateReply(context.Background(), replier.Request{
		PostText:      "post",
		CommentAuthor: "@bob",
		CommentText:   "nice",
	})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestReloadConfig(t *testing.T) {
	a, _ := newTestApp(t, &fakeBot{})
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.Scraping.PostsPerLoad = 9
	require.NoError(t, cfg.SaveFile(path))

	a.SetConfigPath(path)
	require.NoError(t, a.ReloadConfig())
	assert.Equal(t, 9, a.Config().Scraping.PostsPerLoad)

	a.SetConfigPath(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, a.ReloadConfig())
	assert.Equal(t, 9, a.Config().Scraping.PostsPerLoad)
}

func TestApplyConfig(t *testing.T) {
	a, _ := newTestApp(t, &fakeBot{})
	cfg := config.Default()
	cfg.Reply.APIKey = "sk-new"
	a.applyConfig(cfg)

	assert.Same(t, cfg, a.Config())
}
