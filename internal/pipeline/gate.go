package pipeline

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinAnswerLength is the shortest trimmed answer the gate accepts.
const DefaultMinAnswerLength = 50

// inadequateIndicators are phrases the model emits when the retrieved
// context did not contain the answer. The model gives no structural failure
// signal, so its boilerplate is the only one available.
var inadequateIndicators = []string{
	"no relevant information found",
	"no information available",
	"cannot find information",
	"not found in the documents",
	"please try rephrasing",
	"no documents contain",
	"unable to find",
	"no data available",
}

// AdequacyGate decides whether a generated answer is usable or the query
// must fall back to the knowledge path.
type AdequacyGate struct {
	minLength int
}

// NewAdequacyGate creates a gate with the given minimum answer length.
func NewAdequacyGate(minLength int) *AdequacyGate {
	if minLength <= 0 {
		minLength = DefaultMinAnswerLength
	}
	return &AdequacyGate{minLength: minLength}
}

// Adequate reports whether the answer is long enough and free of
// no-information boilerplate. Length is counted in runes, not bytes.
func (g *AdequacyGate) Adequate(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if utf8.RuneCountInString(trimmed) < g.minLength {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, indicator := range inadequateIndicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}

	return true
}
