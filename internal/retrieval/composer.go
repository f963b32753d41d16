package retrieval

import "strings"

// Composition defaults.
const (
	// DefaultTopN is how many ranked candidates the composer considers.
	DefaultTopN = 5

	// DefaultSeparator joins context snippets in the composed string.
	DefaultSeparator = "\n---\n"
)

// DefaultDenialPhrases flags prior assistant refusals. A refusal stored as a
// chunk must not be fed back as if it were a fact; the model would happily
// repeat its own denial. Matched case-insensitively as substrings against
// assistant-sourced candidates only.
var DefaultDenialPhrases = []string{
	"i don't have information about",
	"i don't have any information",
	"i don't know your name",
	"i'm sorry, but i don't",
	"i do not have access to",
}

// Composer assembles the final context string from ranked candidates.
// Compose is a pure function over its inputs; Composer only carries tuning.
type Composer struct {
	// TopN limits how many of the top-ranked candidates are considered.
	TopN int

	// DenialPhrases are lowercase substrings that disqualify
	// assistant-sourced candidates.
	DenialPhrases []string

	// Separator joins the surviving snippets.
	Separator string
}

// NewComposer returns a Composer with the default top-N, denial phrases,
// and separator.
func NewComposer() *Composer {
	return &Composer{
		TopN:          DefaultTopN,
		DenialPhrases: DefaultDenialPhrases,
		Separator:     DefaultSeparator,
	}
}

// Compose filters and joins ranked candidates into a context string for
// prompt injection. An empty result means "no context available" and the
// caller sends the original prompt unmodified.
//
// Filtering order:
//  1. drop candidates identical to the current query (no echoing the
//     question back as its own context)
//  2. keep the first TopN of what remains
//  3. drop assistant candidates matching a denial phrase
//  4. if the query is interrogative, drop interrogative candidates; a
//     question is not explained by another unanswered question
//  5. deduplicate, preserving first-occurrence order
func (c *Composer) Compose(candidates []Candidate, currentQuery string) string {
	topN := c.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	separator := c.Separator
	if separator == "" {
		separator = DefaultSeparator
	}

	kept := make([]Candidate, 0, topN)
	for _, cand := range candidates {
		if cand.Text == currentQuery {
			continue
		}
		kept = append(kept, cand)
		if len(kept) == topN {
			break
		}
	}

	queryIsQuestion := isQuestion(currentQuery)
	seen := make(map[string]struct{}, len(kept))
	var snippets []string
	for _, cand := range kept {
		if cand.Source == SourceAssistant && c.isDenial(cand.Text) {
			continue
		}
		if queryIsQuestion && isQuestion(cand.Text) {
			continue
		}
		if _, dup := seen[cand.Text]; dup {
			continue
		}
		seen[cand.Text] = struct{}{}
		snippets = append(snippets, cand.Text)
	}

	return strings.Join(snippets, separator)
}

func (c *Composer) isDenial(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range c.DenialPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
