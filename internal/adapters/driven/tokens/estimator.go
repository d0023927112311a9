// Package tokens provides a heuristic token counter for budget accounting.
package tokens

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
)

// charsPerToken approximates subword tokenisers on English prose. The
// count only needs to be consistent; the assembly buffer absorbs the
// difference to the downstream model's real tokeniser.
const charsPerToken = 4

// Estimator implements the token counter with a character heuristic.
type Estimator struct{}

var _ driven.TokenCounter = (*Estimator)(nil)

// NewEstimator creates a heuristic token counter.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Count estimates the token count of text. Whitespace-only text counts as
// zero; anything else counts at least one.
func (Estimator) Count(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	n := utf8.RuneCountInString(trimmed)
	count := (n + charsPerToken - 1) / charsPerToken
	if count < 1 {
		count = 1
	}
	return count
}
