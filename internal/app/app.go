// Package app assembles the application from its parts.
//
// Setup wires configuration, tracing, the database pool, Genkit, and the
// retrieval pipeline into an App. Close releases everything in reverse
// order, draining in-flight ingestion work first so no chunk write is cut
// off mid-transaction.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/recall/internal/chat"
	"github.com/koopa0/recall/internal/config"
	"github.com/koopa0/recall/internal/log"
)

// drainTimeout bounds how long Close waits for background ingestion
// goroutines before giving up and closing the pool anyway.
const drainTimeout = 10 * time.Second

// App is the assembled application.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Pool     *pgxpool.Pool
	Pipeline *chat.Pipeline

	// ingestWG counts fire-and-forget ingestion goroutines spawned by the
	// pipeline; Close drains it before tearing down the pool they write to.
	ingestWG *sync.WaitGroup
	bgCancel context.CancelFunc

	otelShutdown func(context.Context) error
}

// Close shuts the application down. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down")
	}

	if a.ingestWG != nil {
		done := make(chan struct{})
		go func() {
			a.ingestWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(drainTimeout):
			if a.Logger != nil {
				a.Logger.Warn("ingestion drain timed out", "timeout", drainTimeout)
			}
		}
	}

	if a.bgCancel != nil {
		a.bgCancel()
	}

	if a.Pool != nil {
		a.Pool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(shutdownCtx); err != nil && a.Logger != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}
