package retrieval

import "strings"

// DefaultStatementBoost is the additive bonus applied to candidates
// classified as statements. Direct factual statements make better injected
// context than open questions, which tend to restate the user's own query.
const DefaultStatementBoost = 0.25

// Scorer returns the heuristic bonus added to a candidate's raw similarity.
// It is pluggable so the classifier can be replaced without touching the
// merge and ranking logic.
type Scorer func(text string) float64

// StatementScorer returns a Scorer that awards boost to declarative text.
// The classification is punctuation-based and intentionally crude:
//
//   - ends with '?'        → question, no boost
//   - ends with '.' or '!' → statement, boost
//   - ends with '/'        → malformed fragment ("What's my name/"), no boost
//   - anything else        → unpunctuated statement fragment ("My name is X"), boost
//
// The trailing-slash rule misfires on URLs; accepted, since URLs rarely make
// useful standalone context either.
func StatementScorer(boost float64) Scorer {
	return func(text string) float64 {
		text = strings.TrimSpace(text)
		if text == "" {
			return 0
		}
		switch text[len(text)-1] {
		case '?', '/':
			return 0
		default:
			return boost
		}
	}
}

// isQuestion reports whether trimmed text ends with a question mark.
func isQuestion(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasSuffix(text, "?")
}
