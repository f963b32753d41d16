package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"
)

// Embedder adapts a Genkit ai.Embedder to the retrieval layer. It normalizes
// input, requests a fixed output dimensionality, and validates what the
// provider returns before any vector reaches the store.
//
// Safe for concurrent use.
type Embedder struct {
	embedder  ai.Embedder
	dimension int
}

// NewEmbedder wraps a Genkit embedder. dimension is the vector length every
// call must produce; providers that return anything else fail loudly here
// rather than corrupting the store.
func NewEmbedder(embedder ai.Embedder, dimension int) (*Embedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	return &Embedder{embedder: embedder, dimension: dimension}, nil
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one provider call, preserving input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(normalize(text), nil)
	}

	dim := int32(e.dimension)
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != e.dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(emb.Embedding), e.dimension)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

// normalize collapses newlines to spaces. Embedding models treat newlines as
// strong separators, which skews similarity for multi-line chunks.
func normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}
