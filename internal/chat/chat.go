// Package chat runs the conversational pipeline: retrieve context for the
// user's question, generate a grounded answer, and ingest both sides of the
// turn for future retrieval.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/koopa0/recall/internal/retrieval"
)

const (
	// retrieveTimeout limits how long context retrieval may take per turn.
	retrieveTimeout = 5 * time.Second

	// fallbackResponse is returned when the model produces empty text.
	fallbackResponse = "I couldn't generate a response. Please try rephrasing your question."
)

// contextPrompt instructs the model to answer only from retrieved context.
// The wording is strict on purpose: without it, models blend retrieved facts
// with hallucinated ones.
const contextPrompt = `Based *solely* on the CONTEXT provided below, answer the USER QUESTION.
CONTEXT:
%s

USER QUESTION: %s`

// ErrGenerate indicates the model call failed after retrieval succeeded.
var ErrGenerate = errors.New("generation failed")

// StreamCallback receives partial output during streaming generation.
// Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config carries the pipeline's dependencies.
type Config struct {
	Genkit    *genkit.Genkit
	Retriever *retrieval.Retriever
	Composer  *retrieval.Composer
	Ingestor  *retrieval.Ingestor
	Logger    *slog.Logger

	// ModelName is the provider-qualified model, e.g. "googleai/gemini-2.5-flash".
	ModelName string

	// RateLimiter throttles model calls when set.
	RateLimiter *rate.Limiter

	// BackgroundCtx outlives individual requests; ingestion goroutines run
	// on it so a closed HTTP connection cannot cancel a store write.
	BackgroundCtx context.Context //nolint:containedctx // app lifecycle, not a request context
	// WG tracks ingestion goroutines for graceful shutdown.
	WG *sync.WaitGroup
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Composer == nil {
		return errors.New("composer is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Ingestor != nil && cfg.WG == nil {
		return errors.New("wg is required when ingestor is set")
	}
	return nil
}

// Pipeline answers questions with retrieved context. It is stateless across
// turns; all state lives in the chunk store.
//
// Safe for concurrent use.
type Pipeline struct {
	g         *genkit.Genkit
	retriever *retrieval.Retriever
	composer  *retrieval.Composer
	ingestor  *retrieval.Ingestor
	logger    *slog.Logger
	modelName string
	limiter   *rate.Limiter

	bgCtx context.Context //nolint:containedctx // app lifecycle, not a request context
	wg    *sync.WaitGroup
}

// New creates a Pipeline. A nil Ingestor disables ingestion: the pipeline
// answers from whatever the store already holds.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bgCtx := cfg.BackgroundCtx
	if bgCtx == nil {
		bgCtx = context.Background()
	}
	return &Pipeline{
		g:         cfg.Genkit,
		retriever: cfg.Retriever,
		composer:  cfg.Composer,
		ingestor:  cfg.Ingestor,
		logger:    logger,
		modelName: cfg.ModelName,
		limiter:   cfg.RateLimiter,
		bgCtx:     bgCtx,
		wg:        cfg.WG,
	}, nil
}

// Ask answers a question using retrieved context and returns the final text.
func (p *Pipeline) Ask(ctx context.Context, query string) (string, error) {
	return p.run(ctx, query, nil)
}

// AskStream answers a question, streaming chunks through callback as they
// arrive. The complete text is also returned.
func (p *Pipeline) AskStream(ctx context.Context, query string, callback StreamCallback) (string, error) {
	return p.run(ctx, query, callback)
}

func (p *Pipeline) run(ctx context.Context, query string, callback StreamCallback) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("empty query")
	}

	contextText := p.retrieveContext(ctx, query)

	prompt := query
	if contextText != "" {
		prompt = fmt.Sprintf(contextPrompt, contextText, query)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limit wait: %w", ErrGenerate, err)
		}
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(p.modelName),
		ai.WithPrompt(prompt),
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(ai.ModelStreamCallback(callback)))
	}

	resp, err := genkit.Generate(ctx, p.g, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerate, err)
	}

	answer := strings.TrimSpace(resp.Text())

	// Ingestion happens after the answer exists, off the request path. The
	// current turn therefore never retrieves its own chunks. Only the model's
	// actual text is stored; the fallback apology is boilerplate, not a fact,
	// and must never resurface as retrieved context.
	p.ingestAsync(query, answer)

	if answer == "" {
		p.logger.Warn("model returned empty response")
		answer = fallbackResponse
	}

	return answer, nil
}

// retrieveContext embeds the query, searches the store, and composes the
// context string. Failures degrade to no context; a broken store must not
// take chat down with it.
func (p *Pipeline) retrieveContext(ctx context.Context, query string) string {
	retrieveCtx, cancel := context.WithTimeout(ctx, retrieveTimeout)
	defer cancel()

	candidates, err := p.retriever.Retrieve(retrieveCtx, query)
	if err != nil {
		p.logger.Warn("context retrieval failed, answering without context", "error", err)
		return ""
	}

	contextText := p.composer.Compose(candidates, query)
	p.logger.Debug("composed context",
		"candidates", len(candidates),
		"context_len", len(contextText))
	return contextText
}

// ingestAsync stores both sides of the turn in the background. Best-effort:
// failures are logged, never surfaced to the user. An empty answer skips the
// assistant side so placeholder text never lands in the store.
func (p *Pipeline) ingestAsync(query, answer string) {
	if p.ingestor == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if n, err := p.ingestor.Ingest(p.bgCtx, query, retrieval.SourceUser); err != nil {
			p.logger.Warn("ingesting user message failed", "error", err)
		} else {
			p.logger.Debug("ingested user message", "chunks", n)
		}
		if answer == "" {
			return
		}
		if n, err := p.ingestor.Ingest(p.bgCtx, answer, retrieval.SourceAssistant); err != nil {
			p.logger.Warn("ingesting assistant message failed", "error", err)
		} else {
			p.logger.Debug("ingested assistant message", "chunks", n)
		}
	}()
}
