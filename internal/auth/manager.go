package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/browser"
	"github.com/ibeckermayer/selectbot/internal/types"
)

// Manager handles X.com authentication
type Manager struct {
	cookieStore *CookieStore
	logger      *zap.Logger

	// loginTimeout bounds each manual step (phone check, 2FA)
	loginTimeout time.Duration
	pollInterval time.Duration
}

// NewManager creates a new auth manager. loginTimeout bounds how long the
// user gets for each manual verification step.
func NewManager(cookieStore *CookieStore, loginTimeout time.Duration, logger *zap.Logger) *Manager {
	if loginTimeout <= 0 {
		loginTimeout = 5 * time.Minute
	}
	return &Manager{
		cookieStore:  cookieStore,
		logger:       logger.Named("auth"),
		loginTimeout: loginTimeout,
		pollInterval: 5 * time.Second,
	}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// Login signs page into X. Stored cookies are tried first; otherwise the
// login flow is driven with username and password, pausing for the user to
// complete phone verification or 2FA in the visible browser window.
func (m *Manager) Login(ctx context.Context, page browser.Page, username, password string) error {
	m.logger.Info("Starting login process", zap.String("username", username))

	if m.cookieStore.IsValid() {
		if cookies, err := m.cookieStore.SiteCookies(); err == nil {
			if err := page.SetCookies(ctx, cookies); err != nil {
				m.logger.Warn("Failed to restore cookies", zap.Error(err))
			}
		}
	}

	if err := page.Navigate(ctx, HomeURL); err != nil {
		return fmt.Errorf("failed to load home page: %w", err)
	}
	if err := page.Sleep(ctx, 2*time.Second); err != nil {
		return err
	}
	if m.CheckLoggedIn(ctx, page) {
		m.logger.Info("Already logged in")
		m.saveCookies(ctx, page)
		return nil
	}

	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", types.ErrLoginFailed)
	}

	m.logger.Info("Going to login page")
	if err := page.Navigate(ctx, LoginURL); err != nil {
		return fmt.Errorf("failed to load login page: %w", err)
	}
	if err := page.Sleep(ctx, 3*time.Second); err != nil {
		return err
	}

	m.logger.Info("Step 1: entering username")
	if err := m.fillAndSubmit(ctx, page, UsernameInputs, 3*time.Second, username, NextButton); err != nil {
		return fmt.Errorf("%w: could not find username input", types.ErrLoginFailed)
	}

	if err := page.Sleep(ctx, 3*time.Second); err != nil {
		return err
	}
	if err := m.handlePhoneVerification(ctx, page); err != nil {
		return err
	}

	m.logger.Info("Step 2: entering password")
	if err := m.fillAndSubmit(ctx, page, PasswordInputs, 5*time.Second, password, LoginButton); err != nil {
		return fmt.Errorf("%w: could not find password input", types.ErrLoginFailed)
	}

	if err := page.Sleep(ctx, 3*time.Second); err != nil {
		return err
	}
	if used, ok := page.FirstVisible(ctx, TwoFactorPrompts); ok {
		m.logger.Info("Step 3: 2FA detected, enter the code from your authenticator app in the browser window",
			zap.String("selector", used))
		if err := m.waitForTwoFactor(ctx, page); err != nil {
			return err
		}
		m.logger.Info("2FA completed")
	}

	m.logger.Info("Verifying login")
	if err := page.Sleep(ctx, 3*time.Second); err != nil {
		return err
	}
	if !m.CheckLoggedIn(ctx, page) {
		return fmt.Errorf("%w: login verification failed", types.ErrLoginFailed)
	}

	m.logger.Info("Login successful")
	m.saveCookies(ctx, page)
	return nil
}

// fillAndSubmit types value into the first input of chain that shows up
// within wait, then clicks submit or presses Enter.
func (m *Manager) fillAndSubmit(ctx context.Context, page browser.Page, chain []string, wait time.Duration, value string, submit []string) error {
	for _, sel := range chain {
		if err := page.WaitVisible(ctx, sel, wait); err != nil {
			m.logger.Debug("Input selector failed, trying next", zap.String("selector", sel))
			continue
		}
		target, _, err := page.Mark(ctx, []string{sel}, false)
		if err != nil {
			continue
		}
		if err := page.Clear(ctx, target); err != nil {
			m.logger.Debug("Could not clear input", zap.String("selector", sel), zap.Error(err))
		}
		if err := page.Type(ctx, target, value); err != nil {
			return err
		}
		m.logger.Debug("Input filled", zap.String("selector", sel))

		if button, _, err := page.Mark(ctx, submit, true); err == nil {
			if err := page.Click(ctx, button); err == nil {
				return nil
			}
		}
		return page.PressEnter(ctx, target)
	}
	return errors.New("no input found")
}

// handlePhoneVerification waits for the user to get past X's unusual-activity
// prompt. Timing out is not fatal; the password step reports what went wrong.
func (m *Manager) handlePhoneVerification(ctx context.Context, page browser.Page) error {
	sel, ok := page.FirstVisible(ctx, PhonePrompts)
	if !ok {
		return nil
	}
	m.logger.Warn("Phone verification detected, handle it manually in the browser", zap.String("selector", sel))

	err := browser.Poll(ctx, browser.PollOptions{
		Interval:      m.pollInterval,
		Timeout:       m.loginTimeout,
		ProgressEvery: 12,
		OnProgress: func(attempts int, elapsed time.Duration) {
			m.logger.Info("Still waiting for phone verification", zap.Duration("elapsed", elapsed.Round(time.Second)))
		},
	}, func(ctx context.Context) (bool, error) {
		return !page.Visible(ctx, sel), nil
	})

	switch {
	case err == nil:
		m.logger.Info("Phone verification handled, continuing")
		return nil
	case errors.Is(err, browser.ErrPollTimeout):
		m.logger.Warn("Phone verification not completed in time, continuing")
		return nil
	default:
		return err
	}
}

// waitForTwoFactor polls until the user is logged in or the 2FA prompt is gone
func (m *Manager) waitForTwoFactor(ctx context.Context, page browser.Page) error {
	err := browser.Poll(ctx, browser.PollOptions{
		Interval:      m.pollInterval,
		Timeout:       m.loginTimeout,
		ProgressEvery: 6,
		OnProgress: func(attempts int, elapsed time.Duration) {
			m.logger.Info("Still waiting for 2FA, enter your 6-digit code in the browser",
				zap.Duration("elapsed", elapsed.Round(time.Second)))
		},
	}, func(ctx context.Context) (bool, error) {
		if m.CheckLoggedIn(ctx, page) {
			return true, nil
		}
		_, still := page.FirstVisible(ctx, TwoFactorPrompts)
		return !still, nil
	})
	if errors.Is(err, browser.ErrPollTimeout) {
		return types.ErrTwoFactorTimeout
	}
	return err
}

// CheckLoggedIn reports whether page shows a logged-in X session
func (m *Manager) CheckLoggedIn(ctx context.Context, page browser.Page) bool {
	if _, ok := page.FirstVisible(ctx, LoggedInIndicators); ok {
		return true
	}
	url, err := page.Location(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(url, "/home") || strings.Contains(url, "/timeline")
}

func (m *Manager) saveCookies(ctx context.Context, page browser.Page) {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		m.logger.Warn("Failed to extract cookies", zap.Error(err))
		return
	}
	if err := m.cookieStore.Save(cookies); err != nil {
		m.logger.Warn("Failed to save cookies", zap.Error(err))
	}
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}
