package knowledge

import (
	"context"
	"math"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/koopa0/recall/internal/testutil"
)

const testDim = 64

func setupEmbedder(t *testing.T) (*Embedder, *testutil.MockEmbedder) {
	t.Helper()
	g := genkit.Init(context.Background())
	mock := testutil.NewMockEmbedder(testDim)
	e, err := NewEmbedder(mock.RegisterEmbedder(g), testDim)
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	return e, mock
}

func TestEmbedder_Embed(t *testing.T) {
	e, _ := setupEmbedder(t)

	vec, err := e.Embed(context.Background(), "My name is Hunter.")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != testDim {
		t.Fatalf("Embed returned %d dimensions, want %d", len(vec), testDim)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 0.01 {
		t.Errorf("Embed vector norm = %f, want ~1.0", math.Sqrt(norm))
	}
}

func TestEmbedder_Embed_Deterministic(t *testing.T) {
	e, _ := setupEmbedder(t)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "I live in Oslo.")
	if err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	v2, err := e.Embed(ctx, "I live in Oslo.")
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("Embed not deterministic at component %d: %f vs %f", i, v1[i], v2[i])
		}
	}
}

func TestEmbedder_Embed_NormalizesNewlines(t *testing.T) {
	e, _ := setupEmbedder(t)
	ctx := context.Background()

	flat, err := e.Embed(ctx, "My name is Hunter.")
	if err != nil {
		t.Fatalf("Embed flat: %v", err)
	}
	wrapped, err := e.Embed(ctx, "My name\nis Hunter.")
	if err != nil {
		t.Fatalf("Embed wrapped: %v", err)
	}
	for i := range flat {
		if flat[i] != wrapped[i] {
			t.Fatal("newline in input changed the embedding, want identical vectors")
		}
	}
}

func TestEmbedder_EmbedBatch(t *testing.T) {
	e, _ := setupEmbedder(t)

	texts := []string{"My name is Hunter.", "I live in Oslo.", "I work on databases."}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("EmbedBatch returned %d vectors, want %d", len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if len(vec) != testDim {
			t.Errorf("vector %d has %d dimensions, want %d", i, len(vec), testDim)
		}
		single, err := e.Embed(context.Background(), texts[i])
		if err != nil {
			t.Fatalf("Embed %q: %v", texts[i], err)
		}
		for j := range vec {
			if vec[j] != single[j] {
				t.Errorf("batch vector %d differs from single-text embedding", i)
				break
			}
		}
	}
}

func TestEmbedder_EmbedBatch_Empty(t *testing.T) {
	e, _ := setupEmbedder(t)
	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if vectors != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", vectors)
	}
}

func TestEmbedder_DimensionEnforced(t *testing.T) {
	g := genkit.Init(context.Background())
	mock := testutil.NewMockEmbedder(testDim)
	// Pin a vector of the wrong length for one input.
	mock.SetVector("short vector text", make([]float32, testDim/2))

	e, err := NewEmbedder(mock.RegisterEmbedder(g), testDim)
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	if _, err := e.Embed(context.Background(), "short vector text"); err == nil {
		t.Fatal("Embed accepted a wrong-dimension vector, want error")
	}
}

func TestNewEmbedder_Validation(t *testing.T) {
	if _, err := NewEmbedder(nil, testDim); err == nil {
		t.Error("NewEmbedder(nil) expected error")
	}
	g := genkit.Init(context.Background())
	mock := testutil.NewMockEmbedder(testDim)
	if _, err := NewEmbedder(mock.RegisterEmbedder(g), 0); err == nil {
		t.Error("NewEmbedder(dim=0) expected error")
	}
}
