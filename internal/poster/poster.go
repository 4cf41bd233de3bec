package poster

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ibeckermayer/selectbot/internal/browser"
	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/types"
)

// Poster replies to posts through the browser
type Poster struct {
	page      browser.Page
	logger    *zap.Logger
	limiter   *rate.Limiter
	maxLength int
}

// New creates a poster. Replies are limited to cfg.RepliesPerMinute; zero
// or less disables the limit.
func New(page browser.Page, cfg config.PostingConfig, logger *zap.Logger) *Poster {
	limit := rate.Inf
	if cfg.RepliesPerMinute > 0 {
		limit = rate.Limit(cfg.RepliesPerMinute / 60)
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = 280
	}
	return &Poster{
		page:      page,
		logger:    logger.Named("poster"),
		limiter:   rate.NewLimiter(limit, 1),
		maxLength: maxLength,
	}
}

// Validate checks a reply before any browser work is done
func (p *Poster) Validate(postURL, text string) error {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(postURL) == "" {
		return types.InvalidInput("Reply text and post URL are required")
	}
	if utf8.RuneCountInString(text) > p.maxLength {
		return types.InvalidInput(fmt.Sprintf("Reply text is too long (max %d characters)", p.maxLength))
	}
	if !strings.Contains(postURL, "status/") {
		return types.InvalidInput("Post URL must point to a post")
	}
	return nil
}

// Reply posts text as a reply to the post at postURL
func (p *Poster) Reply(ctx context.Context, postURL, text string) error {
	if err := p.Validate(postURL, text); err != nil {
		return err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("reply rate limit: %w", err)
	}

	log := p.logger.With(zap.String("url", postURL))
	log.Info("Posting reply", zap.Int("length", utf8.RuneCountInString(text)))

	if err := p.page.Navigate(ctx, postURL); err != nil {
		return err
	}

	if err := p.page.WaitVisible(ctx, PostContent, 15*time.Second); err != nil {
		log.Warn("Post content selector failed, proceeding anyway")
		if err := p.page.Sleep(ctx, 3*time.Second); err != nil {
			return err
		}
	}

	button, used, err := p.page.Mark(ctx, ReplyButtons, false)
	if err != nil {
		return fmt.Errorf("%w: the post might not allow replies or X changed its layout", types.ErrReplyButton)
	}
	log.Debug("Found reply button", zap.String("selector", used))
	if err := p.page.Click(ctx, button); err != nil {
		return fmt.Errorf("%w: click failed: %v", types.ErrReplyButton, err)
	}

	if err := p.page.Sleep(ctx, 2*time.Second); err != nil {
		return err
	}

	area, used, err := p.page.Mark(ctx, TextAreas, false)
	if err != nil {
		return fmt.Errorf("%w: reply interface may not have loaded properly", types.ErrTextArea)
	}
	log.Debug("Found text area", zap.String("selector", used))
	if err := p.fill(ctx, area, text); err != nil {
		return fmt.Errorf("failed to fill reply text: %w", err)
	}

	post, used, err := p.page.Mark(ctx, PostButtons, true)
	if err != nil {
		return fmt.Errorf("%w: the reply may be too long or the interface has an issue", types.ErrPostButton)
	}
	log.Debug("Found post button", zap.String("selector", used))
	if err := p.page.Click(ctx, post); err != nil {
		return fmt.Errorf("failed to click post button: %w", err)
	}

	if err := p.page.Sleep(ctx, 3*time.Second); err != nil {
		return err
	}
	return p.verify(ctx, log)
}

func (p *Poster) fill(ctx context.Context, area, text string) error {
	if err := p.page.Click(ctx, area); err != nil {
		return err
	}
	if err := p.page.Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	if err := p.page.Clear(ctx, area); err != nil {
		return err
	}
	if err := p.page.Sleep(ctx, 500*time.Millisecond); err != nil {
		return err
	}
	if err := p.page.Type(ctx, area, text); err != nil {
		return err
	}
	// let X register the text and enable the button
	return p.page.Sleep(ctx, time.Second)
}

// verify treats a closed reply dialog as success and an on-page alert as a
// failure reported by X. Anything else is assumed to have worked.
func (p *Poster) verify(ctx context.Context, log *zap.Logger) error {
	if !p.page.Visible(ctx, ReplyDialog) {
		log.Info("Reply dialog closed, reply posted")
		return nil
	}

	alert, _, err := p.page.Mark(ctx, Alerts, false)
	if err == nil {
		msg, err := p.page.Text(ctx, alert)
		if err != nil || strings.TrimSpace(msg) == "" {
			msg = "Unknown error"
		}
		log.Warn("X reported an error", zap.String("message", msg))
		return &types.SiteError{Message: strings.TrimSpace(msg)}
	}

	log.Info("Reply appears to have been posted")
	return nil
}
