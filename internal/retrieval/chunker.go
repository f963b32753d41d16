package retrieval

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunking defaults.
const (
	// DefaultMinChunkLength is the minimum chunk length in characters.
	// Shorter fragments ("OK.", "Hi!") carry no retrievable content.
	DefaultMinChunkLength = 5

	// DefaultMaxQuestionWords is the word-count ceiling below which a
	// question chunk is considered a "simple question" and dropped when
	// the question filter is enabled. Bare questions tend to restate the
	// user's query rather than add facts worth retrieving later.
	DefaultMaxQuestionWords = 7
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// sentenceRe matches one sentence: a run of non-terminal characters
	// followed by an optional terminal. The terminator stays attached to
	// its chunk so the classifier downstream can see it.
	sentenceRe = regexp.MustCompile(`[^.?!]+[.?!]?`)
)

// Chunker splits raw message text into retrievable sentence chunks.
// The zero value is not useful; use NewChunker for defaults.
type Chunker struct {
	// MinLength discards chunks shorter than this many characters.
	MinLength int

	// DropShortQuestions, when set, discards question chunks with at most
	// MaxQuestionWords words.
	DropShortQuestions bool

	// MaxQuestionWords is the threshold for DropShortQuestions.
	MaxQuestionWords int
}

// NewChunker returns a Chunker with default settings and the question
// filter disabled.
func NewChunker() *Chunker {
	return &Chunker{
		MinLength:        DefaultMinChunkLength,
		MaxQuestionWords: DefaultMaxQuestionWords,
	}
}

// Chunk splits text into trimmed sentence chunks. Whitespace runs are
// collapsed to single spaces before splitting on sentence-terminal
// punctuation. Chunks shorter than MinLength are discarded, as are short
// interrogative chunks when DropShortQuestions is set.
//
// Chunk is pure and deterministic; empty or whitespace-only input yields nil.
func (c *Chunker) Chunk(text string) []string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if cleaned == "" {
		return nil
	}

	minLength := c.MinLength
	if minLength <= 0 {
		minLength = DefaultMinChunkLength
	}
	maxQuestionWords := c.MaxQuestionWords
	if maxQuestionWords <= 0 {
		maxQuestionWords = DefaultMaxQuestionWords
	}

	var chunks []string
	for _, piece := range sentenceRe.FindAllString(cleaned, -1) {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) < minLength {
			continue
		}
		if c.DropShortQuestions && isQuestion(piece) &&
			len(strings.Fields(piece)) <= maxQuestionWords {
			continue
		}
		chunks = append(chunks, piece)
	}
	return chunks
}
