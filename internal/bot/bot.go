// Package bot drives one X session: login, scraping and replying all happen
// in the same browser tab.
package bot

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/auth"
	"github.com/ibeckermayer/selectbot/internal/browser"
	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/poster"
	"github.com/ibeckermayer/selectbot/internal/scraper"
	"github.com/ibeckermayer/selectbot/internal/store"
	"github.com/ibeckermayer/selectbot/internal/types"
)

// Bot is a browser tab logged into X
type Bot struct {
	page    browser.Page
	closer  io.Closer
	auth    *auth.Manager
	scraper *scraper.Scraper
	poster  *poster.Poster
	cache   *store.Cache
	logger  *zap.Logger
}

// Launch starts a browser and returns a bot driving it. cache, when not
// nil, receives page snapshots for debugging extraction.
func Launch(ctx context.Context, cfg *config.Config, cookies *auth.CookieStore, cache *store.Cache, logger *zap.Logger) (*Bot, error) {
	session := browser.NewSession(cfg.Browser, logger)
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	return New(session, session, cfg, cookies, cache, logger), nil
}

// New wires a bot around an existing page. closer is called by Close and may be nil.
func New(page browser.Page, closer io.Closer, cfg *config.Config, cookies *auth.CookieStore, cache *store.Cache, logger *zap.Logger) *Bot {
	return &Bot{
		page:    page,
		closer:  closer,
		auth:    auth.NewManager(cookies, cfg.Browser.LoginTimeout.Duration, logger),
		scraper: scraper.New(page, logger),
		poster:  poster.New(page, cfg.Posting, logger),
		cache:   cache,
		logger:  logger.Named("bot"),
	}
}

// Login signs the tab into X, waiting for manual verification steps
func (b *Bot) Login(ctx context.Context, username, password string) error {
	return b.auth.Login(ctx, b.page, username, password)
}

// CheckSession reports whether the tab still shows a logged-in session
func (b *Bot) CheckSession(ctx context.Context) bool {
	return b.auth.CheckLoggedIn(ctx, b.page)
}

// Posts scrapes the newest posts from handle's profile
func (b *Bot) Posts(ctx context.Context, handle string, count int) ([]types.Post, error) {
	posts, err := b.scraper.MyPosts(ctx, handle, count)
	if err == nil && len(posts) == 0 {
		b.snapshot(ctx)
	}
	return posts, err
}

// Comments scrapes the replies under postURL
func (b *Bot) Comments(ctx context.Context, postURL string, max int) ([]types.Comment, error) {
	comments, err := b.scraper.Comments(ctx, postURL, max)
	if err == nil && len(comments) == 0 {
		b.snapshot(ctx)
	}
	return comments, err
}

// Reply posts text under postURL
func (b *Bot) Reply(ctx context.Context, postURL, text string) error {
	return b.poster.Reply(ctx, postURL, text)
}

// CurrentHandle returns the logged-in handle shown by the tab, if any
func (b *Bot) CurrentHandle(ctx context.Context) (string, error) {
	return b.scraper.CurrentHandle(ctx)
}

// snapshot caches the current page when extraction came back empty, which
// usually means X changed its markup
func (b *Bot) snapshot(ctx context.Context) {
	if b.cache == nil {
		return
	}
	html, err := b.page.HTML(ctx)
	if err != nil {
		return
	}
	if path, err := b.cache.SaveTextOutput(store.StepPages, html, ".html"); err == nil {
		b.logger.Info("Saved page snapshot", zap.String("path", path))
	}
}

// Close shuts the browser down
func (b *Bot) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
