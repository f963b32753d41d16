// Package api exposes the chat pipeline over HTTP.
//
// Endpoints:
//
//	POST /api/chat         - synchronous chat (JSON in, JSON out)
//	POST /api/chat/stream  - streaming chat (Server-Sent Events)
//	GET  /health           - liveness probe
//	GET  /ready            - readiness probe (pings the database)
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery, CORS, request logging
//   - health.go: probes
//   - chat.go: chat endpoints
//   - response.go: JSON helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/recall/internal/log"
)

const (
	// DefaultAddr is used when no listen address is configured.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout caps graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because streaming responses hold the
	// connection while the model generates.
	WriteTimeout = 120 * time.Second

	// IdleTimeout bounds keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the chat API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	corsOrigins []string

	health *HealthHandler
	chat   *ChatHandler
}

// NewServer creates a server with all routes registered. corsOrigins lists
// the allowed origins for browser clients; empty disables CORS headers.
func NewServer(pool *pgxpool.Pool, pipeline Pipeline, corsOrigins []string, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:         mux,
		logger:      logger,
		corsOrigins: corsOrigins,
		health:      NewHealthHandler(pool, logger),
		chat:        NewChatHandler(pipeline, logger),
	}
	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	return s
}

// Handler returns the mux with middleware applied.
// Order: recovery outermost, then CORS, then logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
		loggingMiddleware(s.logger),
	)
}

// Run starts the server and blocks until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
