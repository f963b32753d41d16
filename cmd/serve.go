package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/koopa0/recall/internal/api"
	"github.com/koopa0/recall/internal/app"
	"github.com/koopa0/recall/internal/config"
	"github.com/koopa0/recall/internal/log"
)

// runServe assembles the application and serves the HTTP API until
// SIGINT or SIGTERM.
func runServe(cfg *config.Config, logger log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting", "version", AppVersion, "model", cfg.FullModelName())

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server := api.NewServer(a.Pool, a.Pipeline, cfg.CORSOrigins, logger)
	return server.Run(ctx, cfg.ListenAddr)
}
