package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/replier"
	"github.com/ibeckermayer/selectbot/internal/store"
	"github.com/ibeckermayer/selectbot/internal/types"
)

// Bot is the browser session the app drives
type Bot interface {
	Login(ctx context.Context, username, password string) error
	CheckSession(ctx context.Context) bool
	Posts(ctx context.Context, handle string, count int) ([]types.Post, error)
	Comments(ctx context.Context, postURL string, max int) ([]types.Comment, error)
	Reply(ctx context.Context, postURL, text string) error
	CurrentHandle(ctx context.Context) (string, error)
	Close() error
}

// Alerter tells the user about events that need them, such as a lost session
type Alerter interface {
	SessionExpired(username string, at time.Time) error
}

// BotFactory launches a new bot for the given config
type BotFactory func(ctx context.Context, cfg *config.Config) (Bot, error)

const (
	MsgConnected        = "Connected successfully!"
	MsgAlreadyConnected = "Already connected"
)

var (
	// ErrSessionExpired is returned by CheckSession when X logged the tab out
	ErrSessionExpired = errors.New("twitter session expired")
	// ErrUnknownHandle means a cookie login succeeded but the tab shows no handle
	ErrUnknownHandle = errors.New("logged in, but could not find the account handle; enter your username and connect again")
	// ErrLoginCancelled is returned by Connect when Disconnect aborts the login
	ErrLoginCancelled = errors.New("login cancelled")
)

// App holds the application state.
type App struct {
	mu sync.RWMutex

	// Mutable fields - use getSnapshot() for concurrent access.
	config  *config.Config
	replier *replier.Replier

	// opMu serialises everything that touches the browser tab
	opMu sync.Mutex

	// Guarded by mu; written only while opMu is held.
	bot      Bot
	username string

	// cancelLogin aborts the running Connect. Guarded by mu.
	cancelLogin context.CancelFunc

	newBot     BotFactory
	alerter    Alerter
	configPath string
	store      *store.Store
	cache      *store.Cache
	base       *zap.Logger
	logger     *zap.Logger
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config  *config.Config
	replier *replier.Replier
	bot     Bot
	handle  string
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:  a.config,
		replier: a.replier,
		bot:     a.bot,
		handle:  a.username,
	}
}

// New creates a new App instance. cache may be nil.
func New(cfg *config.Config, newBot BotFactory, st *store.Store, cache *store.Cache, logger *zap.Logger) *App {
	return &App{
		config:  cfg,
		replier: replier.New(cfg.Reply, cache, logger),
		newBot:  newBot,
		store:   st,
		cache:   cache,
		base:    logger,
		logger:  logger.Named("app"),
	}
}

// SetAlerter installs an alerter for expired sessions. Call before serving.
func (a *App) SetAlerter(al Alerter) {
	a.alerter = al
}

func (a *App) setBot(b Bot, username string) {
	a.mu.Lock()
	a.bot = b
	a.username = username
	a.mu.Unlock()
}

// Connected reports whether a logged-in bot is running
func (a *App) Connected() bool {
	return a.getSnapshot().bot != nil
}

// Connect launches the browser and logs in. Empty credentials fall back to
// the configured account; with no username at all the stored cookies must
// carry the session and the handle is read from the tab. Login may wait
// minutes for a manual 2FA code, so it keeps running when the caller goes
// away. Disconnect aborts it.
func (a *App) Connect(ctx context.Context, username, password string) (string, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	s := a.getSnapshot()
	if s.bot != nil {
		return MsgAlreadyConnected, nil
	}

	if username == "" {
		username = s.config.Account.Username
	}
	if password == "" {
		password = s.config.Account.Password
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*s.config.Browser.LoginTimeout.Duration+2*time.Minute)
	a.mu.Lock()
	a.cancelLogin = cancel
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.cancelLogin = nil
		a.mu.Unlock()
		cancel()
	}()

	a.logger.Info("Starting Twitter bot", zap.String("username", username))
	b, err := a.newBot(loginCtx, s.config)
	if err != nil {
		if errors.Is(loginCtx.Err(), context.Canceled) {
			return "", ErrLoginCancelled
		}
		return "", fmt.Errorf("failed to start browser: %w", err)
	}

	if err := b.Login(loginCtx, username, password); err != nil {
		a.closeBot(b)
		if errors.Is(loginCtx.Err(), context.Canceled) {
			a.logger.Info("Login cancelled")
			return "", ErrLoginCancelled
		}
		a.logger.Error("Login failed", zap.Error(err))
		return "", err
	}

	if username == "" {
		handle, err := b.CurrentHandle(loginCtx)
		if err != nil || handle == "" {
			a.logger.Error("Could not determine account handle", zap.Error(err))
			a.closeBot(b)
			return "", ErrUnknownHandle
		}
		username = handle
	}

	a.setBot(b, username)
	a.logger.Info("Bot connected", zap.String("username", username))
	return MsgConnected, nil
}

func (a *App) closeBot(b Bot) {
	if err := b.Close(); err != nil {
		a.logger.Warn("Failed to close browser", zap.Error(err))
	}
}

// Disconnect aborts a login in progress and closes the browser. It is a
// no-op when not connected.
func (a *App) Disconnect() error {
	a.mu.RLock()
	cancel := a.cancelLogin
	a.mu.RUnlock()
	if cancel != nil {
		a.logger.Info("Cancelling login")
		cancel()
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()
	return a.disconnect()
}

func (a *App) disconnect() error {
	s := a.getSnapshot()
	if s.bot == nil {
		return nil
	}
	a.setBot(nil, "")
	a.logger.Info("Bot disconnected")
	return s.bot.Close()
}

// Status reports the connection state. It never waits on browser work.
func (a *App) Status() types.Status {
	s := a.getSnapshot()
	status := types.Status{Connected: s.bot != nil}
	if s.bot != nil {
		handle := s.handle
		status.Username = &handle
	}
	if a.store != nil {
		if n, err := a.store.ReplyCount(); err == nil {
			status.Replies = n
		}
	}
	return status
}

// Posts scrapes the connected user's latest posts and remembers them for
// Comments.
func (a *App) Posts(ctx context.Context) ([]types.Post, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	s := a.getSnapshot()
	if s.bot == nil {
		return nil, types.ErrNotConnected
	}

	posts, err := s.bot.Posts(ctx, s.handle, s.config.Scraping.PostsPerLoad)
	if err != nil {
		return nil, err
	}
	if len(posts) > s.config.Scraping.PostsPerLoad {
		posts = posts[:s.config.Scraping.PostsPerLoad]
	}

	if err := a.store.SavePosts(posts); err != nil {
		a.logger.Warn("Failed to store posts", zap.Error(err))
	}
	if a.cache != nil {
		if path, err := store.SaveStepOutput(a.cache, store.StepPosts, posts); err != nil {
			a.logger.Warn("Failed to cache posts", zap.Error(err))
		} else {
			a.logger.Debug("Cached posts", zap.String("path", path))
		}
	}

	a.logger.Info("Loaded posts", zap.Int("count", len(posts)))
	return posts, nil
}

// Comments returns the replies under a previously loaded post. While the
// bot is disconnected the replies stored by the last scrape are returned. An
// unknown post, a post without a status URL or a scrape failure all yield an
// empty list.
func (a *App) Comments(ctx context.Context, postID string) ([]types.Comment, error) {
	post, err := a.store.GetPost(postID)
	if err != nil {
		if errors.Is(err, types.ErrPostNotFound) {
			a.logger.Info("Comments requested for unknown post", zap.String("post_id", postID))
			return []types.Comment{}, nil
		}
		return nil, err
	}
	if !strings.Contains(post.URL, "status/") {
		return []types.Comment{}, nil
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()

	s := a.getSnapshot()
	if s.bot == nil {
		return a.storedComments(post.ID), nil
	}

	comments, err := s.bot.Comments(ctx, post.URL, s.config.Scraping.MaxComments)
	if err != nil {
		a.logger.Error("Failed to get comments", zap.String("post_id", postID), zap.Error(err))
		return []types.Comment{}, nil
	}
	for i := range comments {
		comments[i].PostID = post.ID
	}

	if err := a.store.SaveComments(post.ID, comments); err != nil {
		a.logger.Warn("Failed to store comments", zap.Error(err))
	}
	return comments, nil
}

func (a *App) storedComments(postID string) []types.Comment {
	comments, err := a.store.GetComments(postID)
	if err != nil {
		a.logger.Warn("Failed to read stored comments", zap.String("post_id", postID), zap.Error(err))
	}
	if comments == nil {
		return []types.Comment{}
	}
	return comments
}

// GenerateReply writes an AI reply; it does not need the browser
func (a *App) GenerateReply(ctx context.Context, req replier.Request) (string, error) {
	return a.getSnapshot().replier.Generate(ctx, req)
}

// GenerateReplies writes AI replies for several comments of one post
func (a *App) GenerateReplies(ctx context.Context, req replier.BatchRequest) ([]replier.BatchReply, error) {
	return a.getSnapshot().replier.GenerateBatch(ctx, req)
}

// PostReply publishes text under postURL and records it. commentID may be
// empty.
func (a *App) PostReply(ctx context.Context, postURL, text, commentID string) (types.Reply, error) {
	s := a.getSnapshot()
	if s.bot == nil {
		return types.Reply{}, types.ErrNotConnected
	}
	if text == "" || postURL == "" {
		return types.Reply{}, types.InvalidInput("Reply text and post URL are required")
	}
	maxLen := s.config.Posting.MaxLength
	if maxLen <= 0 {
		maxLen = 280
	}
	if utf8.RuneCountInString(text) > maxLen {
		return types.Reply{}, types.InvalidInput(fmt.Sprintf("Reply text is too long (max %d characters)", maxLen))
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()

	// Disconnect may have won the race for opMu
	s = a.getSnapshot()
	if s.bot == nil {
		return types.Reply{}, types.ErrNotConnected
	}

	if err := s.bot.Reply(ctx, postURL, text); err != nil {
		a.logger.Error("Failed to post reply", zap.String("url", postURL), zap.Error(err))
		return types.Reply{}, err
	}

	reply := types.Reply{
		PostURL:   postURL,
		CommentID: commentID,
		Text:      text,
		PostedAt:  time.Now(),
	}
	id, err := a.store.RecordReply(reply)
	if err != nil {
		a.logger.Warn("Failed to record reply", zap.Error(err))
	}
	reply.ID = id
	return reply, nil
}

// Replies returns the most recent posted replies
func (a *App) Replies(limit int) ([]types.Reply, error) {
	return a.store.ListReplies(limit)
}

// CheckSession verifies the tab is still logged in and disconnects if not.
// It skips the check while another browser operation is running.
func (a *App) CheckSession(ctx context.Context) error {
	if !a.opMu.TryLock() {
		a.logger.Debug("Browser busy, skipping session check")
		return nil
	}
	defer a.opMu.Unlock()

	s := a.getSnapshot()
	if s.bot == nil {
		return nil
	}
	if s.bot.CheckSession(ctx) {
		return nil
	}

	a.logger.Warn("Twitter session expired, disconnecting")
	if err := a.disconnect(); err != nil {
		a.logger.Warn("Failed to close browser", zap.Error(err))
	}
	if a.alerter != nil {
		if err := a.alerter.SessionExpired(s.handle, time.Now()); err != nil {
			a.logger.Warn("Failed to send session alert", zap.Error(err))
		}
	}
	return ErrSessionExpired
}

// Config returns the current configuration
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// SetConfigPath sets the file ReloadConfig reads; the default location is
// used when it is empty.
func (a *App) SetConfigPath(path string) {
	a.configPath = path
}

// ReloadConfig reloads the configuration from disk. The running browser
// keeps its settings until the next Connect.
func (a *App) ReloadConfig() error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	a.applyConfig(cfg)
	return nil
}

func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	a.config = cfg
	a.replier = replier.New(cfg.Reply, a.cache, a.base)
	a.mu.Unlock()

	a.logger.Info("Configuration reloaded")
}

// Close disconnects the bot
func (a *App) Close() error {
	return a.Disconnect()
}
