package services

import (
	"context"
	"sort"
	"time"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// Reranker re-scores a candidate set with a finer relevance function.
// Implementations are pure over their inputs: no store access, no side
// effects, safe to run for concurrent queries and safe to skip entirely.
type Reranker interface {
	// Rerank returns the candidates in their final order.
	Rerank(ctx context.Context, query string, candidates []domain.RetrievalCandidate) ([]domain.RetrievalCandidate, error)
}

// The two strategy variants are selected at configuration time: an active
// scorer-backed reranker, or a pass-through when reranking is disabled or
// no scorer is configured. There is no runtime type switching.
var (
	_ Reranker = (*ActiveReranker)(nil)
	_ Reranker = (*PassThroughReranker)(nil)
)

// PassThroughReranker preserves the incoming order untouched.
type PassThroughReranker struct{}

// NewPassThroughReranker creates the no-op reranking strategy.
func NewPassThroughReranker() *PassThroughReranker {
	return &PassThroughReranker{}
}

// Rerank returns the candidates unchanged.
func (r *PassThroughReranker) Rerank(
	_ context.Context, _ string, candidates []domain.RetrievalCandidate,
) ([]domain.RetrievalCandidate, error) {
	return candidates, nil
}

// ActiveReranker re-scores each (query, candidate text) pair through a
// relevance scorer and re-sorts by that score alone. The rerank score
// supersedes the upstream combined score; it is deliberately never blended
// with it. Scoring is bounded by a timeout, after which the pre-rerank
// order is returned: reranking is the most latency-variable stage and must
// be safe to skip under pressure.
type ActiveReranker struct {
	scorer  driven.RelevanceScorer
	timeout time.Duration
}

// NewActiveReranker creates a scorer-backed reranker.
func NewActiveReranker(scorer driven.RelevanceScorer, timeout time.Duration) *ActiveReranker {
	if timeout <= 0 {
		timeout = domain.DefaultRerankTimeout
	}
	return &ActiveReranker{scorer: scorer, timeout: timeout}
}

// Rerank applies the relevance scorer. On timeout or scorer failure it
// downgrades to the incoming order rather than failing the query.
func (r *ActiveReranker) Rerank(
	ctx context.Context, query string, candidates []domain.RetrievalCandidate,
) ([]domain.RetrievalCandidate, error) {
	if len(candidates) < 2 {
		return candidates, nil
	}

	scoreCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	texts := make([]string, len(candidates))
	for i := range candidates {
		texts[i] = candidates[i].Text
	}

	scores, err := r.scorer.Score(scoreCtx, query, texts)
	if err != nil || len(scores) != len(candidates) {
		logger.Warn("Rerank downgraded to pass-through: %v", err)
		return candidates, nil
	}

	reranked := make([]domain.RetrievalCandidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].RerankScore = scores[i]
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		a, b := reranked[i], reranked[j]
		if a.RerankScore != b.RerankScore {
			return a.RerankScore > b.RerankScore
		}
		// Stable fallback to the upstream ordering criteria.
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		return a.ChunkID < b.ChunkID
	})

	logger.Debug("Reranked %d candidates", len(reranked))
	return reranked, nil
}
