package driven

import "context"

// RelevanceScorer computes a fine-grained relevance score for
// (query, text) pairs. Used by the active reranking strategy.
//
// Implementations range from local term-proximity scorers to
// cross-encoder models behind an inference server.
type RelevanceScorer interface {
	// Score returns one relevance score per text, in input order.
	// Higher is more relevant.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}
