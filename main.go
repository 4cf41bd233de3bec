package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ibeckermayer/selectbot/internal/config"
	"github.com/ibeckermayer/selectbot/internal/dashboard"
	"github.com/ibeckermayer/selectbot/internal/observability"
)

func main() {
	// Load or create configuration
	cfg, created, err := dashboard.LoadConfig("")
	if err != nil {
		observability.InitializeLogger(config.Default().Logger)
		observability.GetLogger().Warn("Could not load config, using defaults", zap.Error(err))
		cfg = config.Default()
		cfg.ApplyEnv()
	} else {
		observability.InitializeLogger(cfg.Logger)
	}
	defer observability.Sync()

	logger := observability.GetLogger()
	if created {
		path, _ := config.ConfigPath()
		logger.Info("Created default config", zap.String("path", path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dashboard.Run(ctx, cfg, "", logger); err != nil {
		logger.Error("Dashboard stopped", zap.Error(err))
		observability.Sync()
		os.Exit(1)
	}
}
