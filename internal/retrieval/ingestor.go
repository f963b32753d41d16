package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrIngest indicates a message could not be stored. The failure is atomic
// at message granularity: no partial chunk set is ever persisted.
var ErrIngest = errors.New("ingest failed")

// Ingestor stores a message's content as searchable chunks: chunk, embed,
// bulk insert into the partition matching the source category.
type Ingestor struct {
	store     Store
	embedder  Embedder
	chunker   *Chunker
	dimension int
	logger    *slog.Logger
}

// NewIngestor creates an Ingestor. A nil chunker falls back to NewChunker().
func NewIngestor(store Store, embedder Embedder, chunker *Chunker, dimension int, logger *slog.Logger) (*Ingestor, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if chunker == nil {
		chunker = NewChunker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// Ingest chunks content, embeds every chunk, and inserts the batch into the
// category's partition. Returns the number of chunks inserted.
//
// A message that yields zero chunks is a no-op, not an error. Any embedding
// or store failure fails the whole call with ErrIngest; the store partition
// only ever grows by complete messages.
func (i *Ingestor) Ingest(ctx context.Context, content string, category SourceCategory) (int, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("%w: unknown source category %q", ErrIngest, category)
	}

	chunks := i.chunker.Chunk(content)
	if len(chunks) == 0 {
		i.logger.Debug("no chunks produced, skipping insert", "category", category)
		return 0, nil
	}

	vectors, err := i.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("%w: embedding %d chunks: %w", ErrIngest, len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", ErrIngest, len(vectors), len(chunks))
	}

	records := make([]Record, len(chunks))
	for idx, chunk := range chunks {
		if len(vectors[idx]) != i.dimension {
			return 0, fmt.Errorf("%w: chunk %d has %d-dimensional embedding, want %d",
				ErrIngest, idx, len(vectors[idx]), i.dimension)
		}
		records[idx] = Record{Text: chunk, Embedding: vectors[idx]}
	}

	ids, err := i.store.Insert(ctx, category, records)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting %d chunks: %w", ErrIngest, len(records), err)
	}

	i.logger.Debug("ingested message", "category", category, "chunks", len(ids))
	return len(ids), nil
}
