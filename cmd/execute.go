// Package cmd routes CLI invocations to the serve, migrate, and version
// commands. All application logic lives here so main.go stays a minimal
// entry point.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/koopa0/recall/internal/config"
	"github.com/koopa0/recall/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.0.1"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the entry point called from main. The default command is
// serve; version and help work even when configuration is invalid.
func Execute() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "version", "--version", "-v":
		return printVersionInfo(os.Stdout)
	case "help", "--help", "-h":
		printHelp(os.Stdout)
		return nil
	}

	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	switch command {
	case "serve":
		return runServe(cfg, logger)
	case "migrate":
		return runMigrate(cfg, logger)
	default:
		printHelp(os.Stderr)
		return fmt.Errorf("unknown command %q", command)
	}
}

// initLogger builds the process-wide logger. DEBUG in the environment
// lowers the level; RECALL_LOG_JSON switches to JSON output for log
// collectors.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("RECALL_LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}

func printVersionInfo(w io.Writer) error {
	fmt.Fprintf(w, "recall v%s\n", AppVersion)
	fmt.Fprintf(w, "Build: %s\n", BuildTime)
	fmt.Fprintf(w, "Commit: %s\n", GitCommit)
	return nil
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `recall - conversational memory service

Usage:
  recall [command]

Commands:
  serve      Start the HTTP API server (default)
  migrate    Run database migrations and exit
  version    Show version information
  help       Show this help

Environment:
  DATABASE_URL       PostgreSQL connection URL (overrides postgres.* config)
  GEMINI_API_KEY     API key for the gemini provider
  OPENAI_API_KEY     API key for the openai provider
  DEBUG              Enable debug logging
  RECALL_LOG_JSON    Emit JSON logs
`)
}
