package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/browser"
	"github.com/ibeckermayer/selectbot/internal/types"
)

// Scraper extracts the user's posts and the replies under them from X.com
type Scraper struct {
	page   browser.Page
	logger *zap.Logger
	now    func() time.Time

	contentTimeout time.Duration
	settleDelay    time.Duration
}

// New creates a scraper driving page
func New(page browser.Page, logger *zap.Logger) *Scraper {
	return &Scraper{
		page:           page,
		logger:         logger.Named("scraper"),
		now:            time.Now,
		contentTimeout: 15 * time.Second,
		settleDelay:    3 * time.Second,
	}
}

// waitForContent waits for post containers, then any article-like element,
// and finally falls back to a fixed delay. It never fails on its own.
func (s *Scraper) waitForContent(ctx context.Context) {
	timeout := s.contentTimeout
	for _, sel := range ContentReady {
		if err := s.page.WaitVisible(ctx, sel, timeout); err == nil {
			s.logger.Debug("Content found", zap.String("selector", sel))
			return
		}
		s.logger.Debug("Content selector not found, trying next", zap.String("selector", sel))
		timeout = timeout * 2 / 3
	}
	s.logger.Warn("No specific elements found, proceeding after delay")
	_ = s.page.Sleep(ctx, s.settleDelay)
}

// scrollAndSnapshot scrolls to trigger lazy loading and returns the page HTML
func (s *Scraper) scrollAndSnapshot(ctx context.Context, pixels int) (string, error) {
	if err := s.page.ScrollBy(ctx, pixels); err != nil {
		s.logger.Warn("Scrolling failed, continuing", zap.Error(err))
	} else if err := s.page.Sleep(ctx, s.settleDelay); err != nil {
		return "", err
	}
	return s.page.HTML(ctx)
}

// MyPosts loads the profile of handle and returns up to count of its posts
func (s *Scraper) MyPosts(ctx context.Context, handle string, count int) ([]types.Post, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, fmt.Errorf("%w: username not stored, reconnect the bot first", types.ErrNotConnected)
	}

	profileURL := BaseURL + "/" + handle
	s.logger.Info("Navigating to profile", zap.String("url", profileURL))
	if err := s.page.Navigate(ctx, profileURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to profile: %w", err)
	}

	s.waitForContent(ctx)

	html, err := s.scrollAndSnapshot(ctx, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile page: %w", err)
	}

	posts, err := ExtractPosts(html, count, s.now())
	if err != nil {
		return nil, err
	}

	for i := range posts {
		if posts[i].URL == "" {
			posts[i].URL = fmt.Sprintf("%s/%s/status/%s", BaseURL, handle, posts[i].ID)
		}
	}

	if len(posts) == 0 {
		s.logger.Warn("No valid posts found",
			zap.String("handle", handle),
			zap.String("hint", "profile may be empty or private, the page may not have loaded, or X changed its markup"))
	} else {
		s.logger.Info("Extracted posts from profile", zap.Int("count", len(posts)))
	}
	return posts, nil
}

// Comments loads postURL and returns up to max replies under it. When the
// structured extraction finds nothing the prose heuristic is tried.
func (s *Scraper) Comments(ctx context.Context, postURL string, max int) ([]types.Comment, error) {
	s.logger.Info("Getting comments", zap.String("url", postURL))
	if err := s.page.Navigate(ctx, postURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to post: %w", err)
	}

	s.waitForContent(ctx)

	html, err := s.scrollAndSnapshot(ctx, 1500)
	if err != nil {
		return nil, fmt.Errorf("failed to read post page: %w", err)
	}

	now := s.now()
	comments, err := ExtractComments(html, max, now)
	if err != nil {
		return nil, err
	}

	if len(comments) == 0 {
		s.logger.Info("Structured extraction found no replies, trying text heuristic")
		comments, err = ExtractCommentsSimple(html, min(max, 10), now)
		if err != nil {
			return nil, err
		}
	}

	for i, c := range comments {
		if i >= 3 {
			break
		}
		s.logger.Debug("Sample reply", zap.String("author", c.Author), zap.String("text", truncate(c.Text, 60)))
	}
	s.logger.Info("Found replies", zap.Int("count", len(comments)))
	return comments, nil
}

// CurrentHandle derives the logged-in user's handle from the profile link,
// falling back to the current URL. It returns "" when neither names one.
func (s *Scraper) CurrentHandle(ctx context.Context) (string, error) {
	html, err := s.page.HTML(ctx)
	if err != nil {
		return "", err
	}
	handle, err := HandleFromHTML(html)
	if err != nil {
		return "", err
	}
	if handle != "" {
		return handle, nil
	}

	url, err := s.page.Location(ctx)
	if err != nil {
		return "", err
	}
	return HandleFromURL(url), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
