package testutil

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/koopa0/recall/internal/retrieval"
)

// MemStore is an in-memory retrieval.Store with real cosine search. It lets
// pipeline tests run the full retrieve-compose-generate-ingest loop without
// a database.
//
// Thread-safe for concurrent use; background ingestion goroutines write to
// it while the test asserts.
type MemStore struct {
	mu         sync.Mutex
	partitions map[retrieval.SourceCategory][]retrieval.Record
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{partitions: make(map[retrieval.SourceCategory][]retrieval.Record)}
}

// Insert appends records to the category's partition and returns fresh UUIDs.
func (s *MemStore) Insert(_ context.Context, category retrieval.SourceCategory, records []retrieval.Record) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(records))
	for i, r := range records {
		s.partitions[category] = append(s.partitions[category], r)
		ids[i] = uuid.NewString()
	}
	return ids, nil
}

// Search returns partition records above minSimilarity, best first.
func (s *MemStore) Search(_ context.Context, category retrieval.SourceCategory, vector []float32, limit int, minSimilarity float64) ([]retrieval.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []retrieval.Match
	for _, r := range s.partitions[category] {
		sim := cosineSimilarity(vector, r.Embedding)
		if sim > minSimilarity {
			matches = append(matches, retrieval.Match{Text: r.Text, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count reports how many records a partition holds.
func (s *MemStore) Count(category retrieval.SourceCategory) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.partitions[category])
}

// Texts returns the stored texts of a partition in insertion order.
func (s *MemStore) Texts(category retrieval.SourceCategory) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	texts := make([]string, len(s.partitions[category]))
	for i, r := range s.partitions[category] {
		texts[i] = r.Text
	}
	return texts
}

func cosineSimilarity(a, b []float32) float64 {
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
