package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/types"
)

var errNotStarted = errors.New("browser session not started")

// Page is the set of tab operations the bot's steps are written against.
// Session implements it on top of chromedp.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Visible(ctx context.Context, selector string) bool
	FirstVisible(ctx context.Context, selectors []string) (string, bool)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Mark(ctx context.Context, selectors []string, enabledOnly bool) (target string, used string, err error)
	Click(ctx context.Context, target string) error
	Type(ctx context.Context, target, text string) error
	Clear(ctx context.Context, target string) error
	PressEnter(ctx context.Context, target string) error
	Text(ctx context.Context, target string) (string, error)
	HTML(ctx context.Context) (string, error)
	ScrollBy(ctx context.Context, pixels int) error
	Sleep(ctx context.Context, d time.Duration) error
	Cookies(ctx context.Context) ([]*network.Cookie, error)
	SetCookies(ctx context.Context, cookies []*network.Cookie) error
}

// Session is a single browser tab kept open between dashboard requests
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

var _ Page = (*Session)(nil)

// NewSession creates a session; call Start to launch the browser
func NewSession(cfg config.BrowserConfig, logger *zap.Logger) *Session {
	return &Session{cfg: cfg, logger: logger.Named("browser")}
}

// Start launches the browser. The browser is deliberately not tied to ctx,
// which usually belongs to a single HTTP request; ctx only bounds the launch.
func (s *Session) Start(ctx context.Context) error {
	if s.tab != nil {
		return nil
	}
	s.logger.Info("Initializing browser", zap.Bool("headless", s.cfg.Headless))

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), Options(s.cfg)...)
	tab, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(s.logger.Sugar().Debugf))

	s.tab = tab
	s.tabCancel = tabCancel
	s.allocCancel = allocCancel

	// The first Run on a fresh context launches the browser process
	if err := s.run(ctx); err != nil {
		s.Close()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.logger.Info("Browser initialized")
	return nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() error {
	if s.tab == nil {
		return nil
	}
	s.logger.Info("Closing browser")
	s.tabCancel()
	s.allocCancel()
	s.tab = nil
	return nil
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.tab == nil {
		return errNotStarted
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.tab, deadline)
	} else {
		runCtx, cancel = context.WithCancel(s.tab)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// pause applies the configured slow-motion delay between interactions
func (s *Session) pause(ctx context.Context) {
	_ = Sleep(ctx, s.cfg.SlowMo.Duration)
}

func (s *Session) navigationTimeout() time.Duration {
	if s.cfg.NavigationTimeout.Duration > 0 {
		return s.cfg.NavigationTimeout.Duration
	}
	return 20 * time.Second
}

// Navigate loads url, first waiting for the load event, then settling for
// DOMContentLoaded, then for a bare navigation. X frequently never fires
// load because of long-polling requests.
func (s *Session) Navigate(ctx context.Context, url string) error {
	base := s.navigationTimeout()
	log := s.logger.With(zap.String("url", url))

	loadCtx, cancel := context.WithTimeout(ctx, base)
	err := s.run(loadCtx, chromedp.Navigate(url))
	cancel()
	if err == nil {
		log.Debug("Navigation successful with load")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.Warn("Navigation with load failed, trying domcontentloaded", zap.Error(err))

	domCtx, cancel := context.WithTimeout(ctx, base*3/2)
	err = s.navigateDOMContentLoaded(domCtx, url)
	cancel()
	if err == nil {
		log.Debug("Navigation successful with domcontentloaded")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.Warn("Navigation with domcontentloaded failed, trying basic navigation", zap.Error(err))

	basicCtx, cancel := context.WithTimeout(ctx, base*3/4)
	defer cancel()
	if err := s.run(basicCtx, chromedp.Evaluate(buildAssignScript(url), nil)); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrNavigation, url, err)
	}
	if err := Sleep(basicCtx, 2*time.Second); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrNavigation, url, err)
	}
	log.Debug("Navigation successful with basic navigation")
	return nil
}

func (s *Session) navigateDOMContentLoaded(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Evaluate(buildAssignScript(url), nil)); err != nil {
		return err
	}
	if err := Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	return Poll(ctx, PollOptions{Interval: 250 * time.Millisecond}, func(ctx context.Context) (bool, error) {
		var state string
		if err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			// the execution context is replaced mid-navigation; keep polling
			return false, nil
		}
		return state == "interactive" || state == "complete", nil
	})
}

// Location returns the tab's current URL
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

// Visible reports whether selector matches a visible element. Errors count as
// not visible.
func (s *Session) Visible(ctx context.Context, selector string) bool {
	_, ok := s.FirstVisible(ctx, []string{selector})
	return ok
}

// FirstVisible returns the first selector in the chain matching a visible element
func (s *Session) FirstVisible(ctx context.Context, selectors []string) (string, bool) {
	var used string
	if err := s.run(ctx, chromedp.Evaluate(buildFindScript(selectors, false, ""), &used)); err != nil {
		return "", false
	}
	return used, used != ""
}

// WaitVisible waits up to timeout for selector to become visible
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Mark finds the first visible element matched by the selector chain, tags
// it, and returns a CSS selector addressing exactly that element along with
// the chain entry that matched.
func (s *Session) Mark(ctx context.Context, selectors []string, enabledOnly bool) (string, string, error) {
	token := uuid.NewString()
	var used string
	if err := s.run(ctx, chromedp.Evaluate(buildFindScript(selectors, enabledOnly, token), &used)); err != nil {
		return "", "", err
	}
	if used == "" {
		return "", "", fmt.Errorf("no visible element for %d selectors", len(selectors))
	}
	return TargetSelector(token), used, nil
}

func (s *Session) Click(ctx context.Context, target string) error {
	if err := s.run(ctx, chromedp.Click(target, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return err
	}
	s.pause(ctx)
	return nil
}

func (s *Session) Type(ctx context.Context, target, text string) error {
	if err := s.run(ctx, chromedp.SendKeys(target, text, chromedp.ByQuery)); err != nil {
		return err
	}
	s.pause(ctx)
	return nil
}

func (s *Session) Clear(ctx context.Context, target string) error {
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(buildClearScript(target), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element %s disappeared before it could be cleared", target)
	}
	return nil
}

func (s *Session) PressEnter(ctx context.Context, target string) error {
	if err := s.run(ctx, chromedp.SendKeys(target, kb.Enter, chromedp.ByQuery)); err != nil {
		return err
	}
	s.pause(ctx)
	return nil
}

func (s *Session) Text(ctx context.Context, target string) (string, error) {
	var text string
	err := s.run(ctx, chromedp.Text(target, &text, chromedp.ByQuery, chromedp.AtLeast(0)))
	return text, err
}

// HTML snapshots the whole document
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *Session) ScrollBy(ctx context.Context, pixels int) error {
	return s.run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, pixels), nil))
}

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// Cookies returns every cookie the browser holds
func (s *Session) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}

// SetCookies injects previously captured cookies
func (s *Session) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			params := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				params = params.WithExpires(&expires)
			}
			if err := params.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}
