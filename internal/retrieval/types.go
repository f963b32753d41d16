package retrieval

import "context"

// SourceCategory tags a chunk with its conversational origin.
// It selects the store partition used for insert and search.
type SourceCategory string

const (
	// SourceUser marks chunks derived from user messages.
	SourceUser SourceCategory = "user"

	// SourceAssistant marks chunks derived from assistant replies.
	SourceAssistant SourceCategory = "assistant"
)

// Valid reports whether the category is one of the known partitions.
func (c SourceCategory) Valid() bool {
	return c == SourceUser || c == SourceAssistant
}

// Record is an embedded chunk ready for insertion into a store partition.
type Record struct {
	Text      string
	Embedding []float32
}

// Match is a raw similarity hit returned by a store partition,
// already ordered by descending similarity.
type Match struct {
	Text       string
	Similarity float64 // cosine similarity in [-1, 1]
}

// Candidate is one retrieved chunk scored against the current query.
// Candidates are ephemeral: produced per query, never persisted.
type Candidate struct {
	Text       string
	Similarity float64 // raw cosine similarity from the store
	Source     SourceCategory
	Boosted    float64 // Similarity plus the scorer bonus; ranking key
}

// Embedder maps text to fixed-length vectors. Implementations must surface
// failures as errors, never as zero vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists embedded chunks per source category and answers top-K
// cosine similarity queries. Search results are ordered by descending
// similarity and respect the minimum-similarity floor. Insert is bulk:
// either every record lands or the call fails as a whole.
type Store interface {
	Insert(ctx context.Context, category SourceCategory, records []Record) ([]string, error)
	Search(ctx context.Context, category SourceCategory, vector []float32, limit int, minSimilarity float64) ([]Match, error)
}
