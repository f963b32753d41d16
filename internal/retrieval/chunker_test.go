package retrieval

import (
	"strings"
	"testing"
)

func TestChunker_Chunk(t *testing.T) {
	tests := []struct {
		name    string
		chunker *Chunker
		input   string
		want    []string
	}{
		{
			name:    "empty input",
			chunker: NewChunker(),
			input:   "",
			want:    nil,
		},
		{
			name:    "whitespace only",
			chunker: NewChunker(),
			input:   "   \n\t  ",
			want:    nil,
		},
		{
			name:    "single sentence keeps terminator",
			chunker: NewChunker(),
			input:   "My name is Hunter.",
			want:    []string{"My name is Hunter."},
		},
		{
			name:    "splits on terminal punctuation",
			chunker: NewChunker(),
			input:   "I live in Oslo. I work remotely! Do you remember that?",
			want:    []string{"I live in Oslo.", "I work remotely!", "Do you remember that?"},
		},
		{
			name:    "collapses whitespace runs",
			chunker: NewChunker(),
			input:   "I   like\n\nGo.  It  is   fast.",
			want:    []string{"I like Go.", "It is fast."},
		},
		{
			name:    "drops pieces below min length",
			chunker: NewChunker(),
			input:   "Hi. This sentence is long enough.",
			want:    []string{"This sentence is long enough."},
		},
		{
			name:    "min length counts characters not bytes",
			chunker: NewChunker(),
			input:   "日本語. 私は東京に住んでいます.",
			want:    []string{"私は東京に住んでいます."},
		},
		{
			name:    "trailing fragment without terminator retained",
			chunker: NewChunker(),
			input:   "First sentence. and a trailing fragment",
			want:    []string{"First sentence.", "and a trailing fragment"},
		},
		{
			name:    "custom min length",
			chunker: &Chunker{MinLength: 20},
			input:   "Too short here. This one clears the twenty character bar.",
			want:    []string{"This one clears the twenty character bar."},
		},
		{
			name:    "short question dropped when filter enabled",
			chunker: &Chunker{MinLength: 5, DropShortQuestions: true, MaxQuestionWords: 7},
			input:   "What is my name? My name is Hunter.",
			want:    []string{"My name is Hunter."},
		},
		{
			name:    "long question survives the filter",
			chunker: &Chunker{MinLength: 5, DropShortQuestions: true, MaxQuestionWords: 7},
			input:   "Could you please remind me what my favorite restaurant in Lisbon was?",
			want:    []string{"Could you please remind me what my favorite restaurant in Lisbon was?"},
		},
		{
			name:    "short question kept when filter disabled",
			chunker: NewChunker(),
			input:   "What is my name?",
			want:    []string{"What is my name?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.chunker.Chunk(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Chunk(%q) = %q, want %q", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Chunk(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunker_Chunk_MinLengthProperty(t *testing.T) {
	c := NewChunker()
	inputs := []string{
		"a. b. c. d. words that matter stay.",
		"One. Two! Three? A full sentence at the end.",
		"....!!??",
	}
	for _, input := range inputs {
		for _, chunk := range c.Chunk(input) {
			if len(chunk) < c.MinLength {
				t.Errorf("Chunk(%q) produced %q shorter than MinLength %d", input, chunk, c.MinLength)
			}
			if chunk != strings.TrimSpace(chunk) {
				t.Errorf("Chunk(%q) produced untrimmed chunk %q", input, chunk)
			}
		}
	}
}

func TestChunker_Chunk_Deterministic(t *testing.T) {
	c := NewChunker()
	input := "My name is Hunter. I moved to Oslo last year. What else?"
	first := c.Chunk(input)
	second := c.Chunk(input)
	if len(first) != len(second) {
		t.Fatalf("Chunk not deterministic: %d vs %d chunks", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Chunk not deterministic at %d: %q vs %q", i, first[i], second[i])
		}
	}
}
