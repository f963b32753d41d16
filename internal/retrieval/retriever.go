package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Retrieval defaults. All are tunable via RetrieverConfig.
const (
	// DefaultInitialLimit caps candidates fetched per store partition.
	DefaultInitialLimit = 15

	// DefaultSimilarityThreshold is the cosine similarity floor below
	// which store hits are not considered relevant.
	DefaultSimilarityThreshold = 0.5
)

// ErrSearch indicates the similarity search against the store failed.
// Callers are expected to log it and proceed without context.
var ErrSearch = errors.New("similarity search failed")

// RetrieverConfig tunes candidate retrieval.
type RetrieverConfig struct {
	// Dimension is the embedding vector length. A query embedding of any
	// other length is rejected before it reaches the store.
	Dimension int

	// InitialLimit is the per-partition candidate cap (default 15).
	InitialLimit int

	// SimilarityThreshold is the minimum raw cosine similarity. Zero means
	// the 0.5 default; set a negative value to disable the floor and accept
	// every hit the store returns.
	SimilarityThreshold float64
}

// Retriever turns a raw query into a ranked candidate list. It embeds the
// query once, searches the user and assistant partitions in parallel, merges
// the hits, and re-ranks by boosted similarity.
//
// Retriever is stateless between calls and safe for concurrent use.
type Retriever struct {
	store    Store
	embedder Embedder
	score    Scorer
	cfg      RetrieverConfig
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. A nil scorer falls back to
// StatementScorer with the default boost; a nil logger falls back to
// slog.Default().
func NewRetriever(store Store, embedder Embedder, scorer Scorer, cfg RetrieverConfig, logger *slog.Logger) (*Retriever, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}
	if scorer == nil {
		scorer = StatementScorer(DefaultStatementBoost)
	}
	if cfg.InitialLimit <= 0 {
		cfg.InitialLimit = DefaultInitialLimit
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		score:    scorer,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Retrieve returns candidates ranked by boosted similarity, best first.
// The returned slice may hold up to 2×InitialLimit entries; callers pick
// their own top-N (normally via Composer).
//
// Embedding failures and dimensionality mismatches degrade to an empty
// result with a warning, since retrieval must never sink a chat turn. Store
// failures return an error wrapping ErrSearch so the caller can decide.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Candidate, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, answering without context", "error", err)
		return nil, nil
	}
	if len(vec) != r.cfg.Dimension {
		r.logger.Warn("query embedding has wrong dimensionality, answering without context",
			"got", len(vec), "want", r.cfg.Dimension)
		return nil, nil
	}

	// Fan out one search per partition. The two queries are independent;
	// running them concurrently halves wall-clock latency on the hot path.
	var userHits, assistantHits []Match
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var searchErr error
		userHits, searchErr = r.store.Search(gctx, SourceUser, vec, r.cfg.InitialLimit, r.cfg.SimilarityThreshold)
		return searchErr
	})
	g.Go(func() error {
		var searchErr error
		assistantHits, searchErr = r.store.Search(gctx, SourceAssistant, vec, r.cfg.InitialLimit, r.cfg.SimilarityThreshold)
		return searchErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}

	candidates := make([]Candidate, 0, len(userHits)+len(assistantHits))
	for _, m := range userHits {
		candidates = append(candidates, r.toCandidate(m, SourceUser))
	}
	for _, m := range assistantHits {
		candidates = append(candidates, r.toCandidate(m, SourceAssistant))
	}

	// Stable sort: equal boosted scores keep their merge order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Boosted > candidates[j].Boosted
	})

	r.logger.Debug("retrieved candidates",
		"user", len(userHits),
		"assistant", len(assistantHits))
	return candidates, nil
}

func (r *Retriever) toCandidate(m Match, source SourceCategory) Candidate {
	return Candidate{
		Text:       m.Text,
		Similarity: m.Similarity,
		Source:     source,
		Boosted:    m.Similarity + r.score(m.Text),
	}
}
