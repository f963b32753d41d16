package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"testing"
)

// hashEmbedder is a deterministic bag-of-words embedder: each lowercased
// word hashes to a bucket, counts are L2-normalized. Texts sharing words get
// genuinely high cosine similarity, which makes end-to-end assertions real.
type hashEmbedder struct {
	dim     int
	err     error // returned from every call when set
	makeDim int   // when non-zero, vectors come back with this length instead
}

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *hashEmbedder) vector(text string) []float32 {
	dim := e.dim
	if e.makeDim != 0 {
		dim = e.makeDim
	}
	vec := make([]float32, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".?!,;:'\"")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// memStore is an in-memory Store with true cosine search per partition.
type memStore struct {
	partitions map[SourceCategory][]Record
	insertErr  error
	searchErr  error
}

func newMemStore() *memStore {
	return &memStore{partitions: make(map[SourceCategory][]Record)}
}

func (s *memStore) Insert(_ context.Context, category SourceCategory, records []Record) ([]string, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	ids := make([]string, len(records))
	for i, r := range records {
		s.partitions[category] = append(s.partitions[category], r)
		ids[i] = r.Text
	}
	return ids, nil
}

func (s *memStore) Search(_ context.Context, category SourceCategory, vector []float32, limit int, minSimilarity float64) ([]Match, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	var matches []Match
	for _, r := range s.partitions[category] {
		sim := cosine(vector, r.Embedding)
		if sim > minSimilarity {
			matches = append(matches, Match{Text: r.Text, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

const testDim = 64

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRetriever(t *testing.T, store Store, embedder Embedder, cfg RetrieverConfig) *Retriever {
	t.Helper()
	if cfg.Dimension == 0 {
		cfg.Dimension = testDim
	}
	r, err := NewRetriever(store, embedder, nil, cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	return r
}

func seed(t *testing.T, store *memStore, embedder *hashEmbedder, category SourceCategory, texts ...string) {
	t.Helper()
	ctx := context.Background()
	for _, text := range texts {
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			t.Fatalf("seeding embed: %v", err)
		}
		if _, err := store.Insert(ctx, category, []Record{{Text: text, Embedding: vec}}); err != nil {
			t.Fatalf("seeding insert: %v", err)
		}
	}
}

func TestRetriever_StatementOutranksQuestion(t *testing.T) {
	embedder := &hashEmbedder{dim: testDim}
	store := newMemStore()
	seed(t, store, embedder, SourceUser,
		"Do you know what my name is?",
		"My name is Hunter.",
	)

	r := newTestRetriever(t, store, embedder, RetrieverConfig{SimilarityThreshold: 0.3})
	got, err := r.Retrieve(context.Background(), "What is my name?")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("Retrieve returned %d candidates, want at least 2", len(got))
	}
	// The question chunk sits closer in raw similarity space than many
	// statements would, but the boost must still put the statement first.
	if got[0].Text != "My name is Hunter." {
		t.Errorf("top candidate = %q, want the boosted statement ranked first", got[0].Text)
	}
}

func TestRetriever_MergesBothPartitions(t *testing.T) {
	embedder := &hashEmbedder{dim: testDim}
	store := newMemStore()
	seed(t, store, embedder, SourceUser, "I moved to Oslo last year.")
	seed(t, store, embedder, SourceAssistant, "You moved to Oslo last year.")

	r := newTestRetriever(t, store, embedder, RetrieverConfig{SimilarityThreshold: 0.3})
	got, err := r.Retrieve(context.Background(), "Where did I move last year?")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	sources := map[SourceCategory]bool{}
	for _, c := range got {
		sources[c.Source] = true
	}
	if !sources[SourceUser] || !sources[SourceAssistant] {
		t.Errorf("Retrieve sources = %v, want hits from both partitions", sources)
	}
}

func TestRetriever_StableTieBreak(t *testing.T) {
	// A store stub returning fixed, equal-similarity matches: order in must
	// equal order out.
	store := &fixedStore{
		user:      []Match{{Text: "Alpha fact.", Similarity: 0.8}, {Text: "Beta fact.", Similarity: 0.8}},
		assistant: []Match{{Text: "Gamma fact.", Similarity: 0.8}},
	}
	r := newTestRetriever(t, store, &hashEmbedder{dim: testDim}, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "facts")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := []string{"Alpha fact.", "Beta fact.", "Gamma fact."}
	if len(got) != len(want) {
		t.Fatalf("Retrieve returned %d candidates, want %d", len(got), len(want))
	}
	for i, text := range want {
		if got[i].Text != text {
			t.Errorf("candidate[%d] = %q, want %q (stable merge order)", i, got[i].Text, text)
		}
	}
}

func TestRetriever_Idempotent(t *testing.T) {
	embedder := &hashEmbedder{dim: testDim}
	store := newMemStore()
	seed(t, store, embedder, SourceUser,
		"My name is Hunter.",
		"I live in Oslo.",
		"I work on databases.",
	)

	r := newTestRetriever(t, store, embedder, RetrieverConfig{SimilarityThreshold: 0.1})
	first, err := r.Retrieve(context.Background(), "Tell me about my work and my name.")
	if err != nil {
		t.Fatalf("first Retrieve: %v", err)
	}
	second, err := r.Retrieve(context.Background(), "Tell me about my work and my name.")
	if err != nil {
		t.Fatalf("second Retrieve: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("retrieve not idempotent: %d vs %d candidates", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("retrieve not idempotent at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRetriever_NegativeThresholdDisablesFloor(t *testing.T) {
	embedder := &hashEmbedder{dim: testDim}
	store := newMemStore()
	// No word overlap with the query, so raw similarity is near zero and
	// the default 0.5 floor filters it out.
	seed(t, store, embedder, SourceUser, "I live in Oslo.")

	strict := newTestRetriever(t, store, embedder, RetrieverConfig{})
	got, err := strict.Retrieve(context.Background(), "What is your favorite color?")
	if err != nil {
		t.Fatalf("Retrieve with default threshold: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("default threshold returned %d candidates, want 0", len(got))
	}

	open := newTestRetriever(t, store, embedder, RetrieverConfig{SimilarityThreshold: -1})
	got, err = open.Retrieve(context.Background(), "What is your favorite color?")
	if err != nil {
		t.Fatalf("Retrieve with negative threshold: %v", err)
	}
	if len(got) != 1 || got[0].Text != "I live in Oslo." {
		t.Errorf("negative threshold candidates = %+v, want the seeded chunk", got)
	}
}

func TestRetriever_EmbeddingFailureDegrades(t *testing.T) {
	store := newMemStore()
	embedder := &hashEmbedder{dim: testDim, err: errors.New("model unavailable")}
	r := newTestRetriever(t, store, embedder, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve after embed failure returned error %v, want graceful empty", err)
	}
	if len(got) != 0 {
		t.Errorf("Retrieve after embed failure returned %d candidates, want 0", len(got))
	}
}

func TestRetriever_DimensionMismatchDegrades(t *testing.T) {
	store := newMemStore()
	embedder := &hashEmbedder{dim: testDim, makeDim: testDim + 1}
	r := newTestRetriever(t, store, embedder, RetrieverConfig{})

	got, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve with bad dimension returned error %v, want graceful empty", err)
	}
	if len(got) != 0 {
		t.Errorf("Retrieve with bad dimension returned %d candidates, want 0", len(got))
	}
}

func TestRetriever_StoreFailureIsTyped(t *testing.T) {
	store := newMemStore()
	store.searchErr = errors.New("connection refused")
	r := newTestRetriever(t, store, &hashEmbedder{dim: testDim}, RetrieverConfig{})

	_, err := r.Retrieve(context.Background(), "anything")
	if !errors.Is(err, ErrSearch) {
		t.Fatalf("Retrieve store failure error = %v, want ErrSearch", err)
	}
}

func TestNewRetriever_Validation(t *testing.T) {
	embedder := &hashEmbedder{dim: testDim}
	store := newMemStore()

	if _, err := NewRetriever(nil, embedder, nil, RetrieverConfig{Dimension: testDim}, nil); err == nil {
		t.Error("NewRetriever(nil store) expected error")
	}
	if _, err := NewRetriever(store, nil, nil, RetrieverConfig{Dimension: testDim}, nil); err == nil {
		t.Error("NewRetriever(nil embedder) expected error")
	}
	if _, err := NewRetriever(store, embedder, nil, RetrieverConfig{}, nil); err == nil {
		t.Error("NewRetriever(zero dimension) expected error")
	}
}

// fixedStore returns canned matches regardless of the query vector.
type fixedStore struct {
	user      []Match
	assistant []Match
}

func (s *fixedStore) Insert(context.Context, SourceCategory, []Record) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (s *fixedStore) Search(_ context.Context, category SourceCategory, _ []float32, _ int, _ float64) ([]Match, error) {
	if category == SourceUser {
		return s.user, nil
	}
	return s.assistant, nil
}
