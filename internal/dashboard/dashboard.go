// Package dashboard wires the app, scheduler and HTTP server together.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/app"
	"github.com/ibeckermayer/selectbot/internal/auth"
	"github.com/ibeckermayer/selectbot/internal/bot"
	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/notifier"
	"github.com/ibeckermayer/selectbot/internal/scheduler"
	"github.com/ibeckermayer/selectbot/internal/server"
	"github.com/ibeckermayer/selectbot/internal/store"
)

// LoadConfig reads the config at path (the default location when empty).
// On first run the defaults are written there. Environment overrides are
// applied after saving so secrets from the environment never hit disk.
func LoadConfig(path string) (cfg *config.Config, created bool, err error) {
	if path == "" {
		if path, err = config.ConfigPath(); err != nil {
			return nil, false, err
		}
	}

	cfg, err = config.LoadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
		if err := cfg.SaveFile(path); err != nil {
			return nil, false, fmt.Errorf("could not save default config: %w", err)
		}
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("could not load config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, created, nil
}

// BotFactory launches real browser sessions sharing one cookie store
func BotFactory(cookies *auth.CookieStore, cache *store.Cache, logger *zap.Logger) app.BotFactory {
	return func(ctx context.Context, cfg *config.Config) (app.Bot, error) {
		b, err := bot.Launch(ctx, cfg, cookies, cache, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Run serves the dashboard until ctx is cancelled. configPath is the file
// the dashboard reloads on request; empty means the default location.
func Run(ctx context.Context, cfg *config.Config, configPath string, logger *zap.Logger) error {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	cache, err := store.DefaultCache()
	if err != nil {
		logger.Warn("Step cache disabled", zap.Error(err))
		cache = nil
	}

	cookiePath, err := auth.DefaultCookieStorePath()
	if err != nil {
		return fmt.Errorf("failed to get cookie store path: %w", err)
	}
	cookies := auth.NewCookieStore(cookiePath)

	a := app.New(cfg, BotFactory(cookies, cache, logger), st, cache, logger)
	a.SetConfigPath(configPath)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	n, err := notifier.NewFromConfig(cfg.Notify)
	if err != nil {
		return err
	}
	if n != nil {
		a.SetAlerter(n)
	}

	sched, err := scheduler.New(cfg.Scheduler.Timezone, logger)
	if err != nil {
		return err
	}
	if err := sched.AddSessionCheckJob(cfg.Scheduler.SessionCheckIntervalMinutes, a.CheckSession); err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	srv := server.New(cfg.Server.Addr, a, logger)
	if cfg.Server.OpenBrowser {
		go openDashboard(ctx, "http://"+srv.Addr(), logger)
	}

	logger.Info("selectbot starting", zap.String("addr", srv.Addr()))
	return srv.Run(ctx)
}

func openDashboard(ctx context.Context, url string, logger *zap.Logger) {
	// Give the listener a moment to come up
	select {
	case <-ctx.Done():
		return
	case <-time.After(500 * time.Millisecond):
	}
	if err := browser.OpenURL(url); err != nil {
		logger.Warn("Could not open dashboard, visit it manually", zap.String("url", url), zap.Error(err))
	}
}
