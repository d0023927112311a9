package driving

import (
	"context"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// QueryService answers natural-language queries by retrieving, reranking
// and assembling chunks into a token-budgeted context.
type QueryService interface {
	// Retrieve runs hybrid retrieval only, returning the ranked candidates.
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievalCandidate, error)

	// Ask runs the full pipeline (retrieve, rerank, assemble) and returns
	// the assembled context with provenance.
	Ask(ctx context.Context, query string) (*domain.AssembledContext, error)
}
