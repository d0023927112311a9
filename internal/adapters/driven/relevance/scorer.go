// Package relevance provides a local relevance scorer for the active
// reranking strategy. It scores query term coverage and proximity without
// calling any external model.
package relevance

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
)

var reWord = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// proximityWindow is the token distance within which two query terms count
// as near each other.
const proximityWindow = 8

// Scorer implements term-coverage and proximity scoring.
type Scorer struct{}

var _ driven.RelevanceScorer = (*Scorer)(nil)

// NewScorer creates a local relevance scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns one relevance score per text, in input order. Scores are
// in [0, 2]: up to 1 for query term coverage, up to 1 for proximity of
// distinct query terms within a small window.
func (Scorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	queryTerms := distinct(terms(query))
	scores := make([]float64, len(texts))
	if len(queryTerms) == 0 {
		return scores, nil
	}

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = scoreText(queryTerms, terms(text))
	}
	return scores, nil
}

func scoreText(queryTerms []string, textTerms []string) float64 {
	positions := make(map[string][]int)
	for pos, term := range textTerms {
		positions[term] = append(positions[term], pos)
	}

	matched := 0
	var matchedPositions []int
	for _, q := range queryTerms {
		if pos, ok := positions[q]; ok {
			matched++
			matchedPositions = append(matchedPositions, pos[0])
		}
	}
	if matched == 0 {
		return 0
	}

	coverage := float64(matched) / float64(len(queryTerms))
	if matched < 2 {
		return coverage
	}

	// Count how many matched term pairs sit close together.
	near := 0
	pairs := 0
	for i := 0; i < len(matchedPositions); i++ {
		for j := i + 1; j < len(matchedPositions); j++ {
			pairs++
			if abs(matchedPositions[i]-matchedPositions[j]) <= proximityWindow {
				near++
			}
		}
	}

	return coverage + float64(near)/float64(pairs)
}

func terms(text string) []string {
	matches := reWord.FindAllString(strings.ToLower(text), -1)
	return matches
}

func distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
