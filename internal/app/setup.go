package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	coreapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/koopa0/recall/db"
	"github.com/koopa0/recall/internal/chat"
	"github.com/koopa0/recall/internal/config"
	"github.com/koopa0/recall/internal/database"
	"github.com/koopa0/recall/internal/knowledge"
	"github.com/koopa0/recall/internal/log"
	"github.com/koopa0/recall/internal/observability"
	"github.com/koopa0/recall/internal/retrieval"
)

// Setup creates and initializes the application. The returned App owns all
// resources; call Close to release them. On error everything already
// initialized is torn down before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first so Genkit's TracerProvider has its processor before
	// any flow runs.
	otelShutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = otelShutdown

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}

	pipeline, wg, bgCancel, err := providePipeline(ctx, cfg, g, embedder, pool, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = pipeline
	a.ingestWG = wg
	a.bgCancel = bgCancel

	return a, nil
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Plugins read their API keys from the environment (GEMINI_API_KEY,
// OPENAI_API_KEY); Validate has already confirmed they are set.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
	default: // gemini / googleai
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
	}

	logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.FullModelName())
	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		// OpenAI auto-registers embedders in Init().
		return genkit.LookupEmbedder(g, coreapi.NewName("openai", cfg.EmbedderModel))
	default: // gemini / googleai
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// providePipeline builds the retrieval stack and the chat pipeline on top
// of it. The returned WaitGroup and cancel func belong to the background
// ingestion context; App.Close drains and cancels them.
func providePipeline(ctx context.Context, cfg *config.Config, g *genkit.Genkit, aiEmbedder ai.Embedder, pool *pgxpool.Pool, logger log.Logger) (*chat.Pipeline, *sync.WaitGroup, context.CancelFunc, error) {
	embedder, err := knowledge.NewEmbedder(aiEmbedder, cfg.EmbeddingDimension)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := knowledge.NewStore(pool, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating chunk store: %w", err)
	}

	rc := cfg.Retrieval

	retriever, err := retrieval.NewRetriever(store, embedder,
		retrieval.StatementScorer(rc.StatementBoost),
		retrieval.RetrieverConfig{
			Dimension:           cfg.EmbeddingDimension,
			InitialLimit:        rc.InitialLimit,
			SimilarityThreshold: rc.SimilarityThreshold,
		}, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating retriever: %w", err)
	}

	// Short bare questions ("What is my name?") restate queries instead of
	// adding facts, so they are filtered at ingest time.
	chunker := retrieval.NewChunker()
	chunker.MinLength = rc.MinChunkLength
	chunker.DropShortQuestions = true
	chunker.MaxQuestionWords = rc.MaxQuestionWords

	ingestor, err := retrieval.NewIngestor(store, embedder, chunker, cfg.EmbeddingDimension, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating ingestor: %w", err)
	}

	composer := retrieval.NewComposer()
	composer.TopN = rc.TopN

	// Ingestion goroutines outlive the request that spawned them. They run
	// on bgCtx, which is canceled only during shutdown.
	bgCtx, bgCancel := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup

	pipeline, err := chat.New(chat.Config{
		Genkit:        g,
		Retriever:     retriever,
		Composer:      composer,
		Ingestor:      ingestor,
		Logger:        logger,
		ModelName:     cfg.FullModelName(),
		RateLimiter:   provideLimiter(cfg.RequestsPerS),
		BackgroundCtx: bgCtx,
		WG:            &wg,
	})
	if err != nil {
		bgCancel()
		return nil, nil, nil, fmt.Errorf("creating chat pipeline: %w", err)
	}

	return pipeline, &wg, bgCancel, nil
}

// provideLimiter converts the configured requests-per-second into a rate
// limiter. Zero or negative disables throttling.
func provideLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
