package services

import (
	"context"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// QueryPipeline chains hybrid retrieval, reranking and context assembly.
// Retrieval options come from settings unless the caller overrides them.
type QueryPipeline struct {
	retriever *HybridRetriever
	reranker  Reranker
	assembler *ContextAssembler
	settings  domain.Settings
}

var _ driving.QueryService = (*QueryPipeline)(nil)

// NewQueryPipeline wires the pipeline stages together.
func NewQueryPipeline(
	retriever *HybridRetriever,
	reranker Reranker,
	assembler *ContextAssembler,
	settings domain.Settings,
) *QueryPipeline {
	return &QueryPipeline{
		retriever: retriever,
		reranker:  reranker,
		assembler: assembler,
		settings:  settings,
	}
}

// Retrieve runs hybrid retrieval only.
func (p *QueryPipeline) Retrieve(
	ctx context.Context, query string, opts domain.RetrievalOptions,
) ([]domain.RetrievalCandidate, error) {
	return p.retriever.Retrieve(ctx, query, p.fillOptions(opts))
}

// Ask runs the full pipeline. Cancellation is checked between stages so an
// abandoned query never proceeds to reranking or assembly.
func (p *QueryPipeline) Ask(ctx context.Context, query string) (*domain.AssembledContext, error) {
	candidates, err := p.retriever.Retrieve(ctx, query, p.defaultOptions())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reranked, err := p.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assembled, err := p.assembler.Assemble(reranked)
	if err != nil {
		return nil, err
	}
	logger.Info("Answered with %d context entries (%d tokens)",
		len(assembled.Entries), assembled.TotalTokens)
	return assembled, nil
}

func (p *QueryPipeline) defaultOptions() domain.RetrievalOptions {
	return domain.RetrievalOptions{
		TopK:         p.settings.TopK,
		Weights:      p.settings.Weights,
		Boosts:       p.settings.Boosts,
		BoostCeiling: p.settings.BoostCeiling,
	}
}

// fillOptions backfills zero-valued fields from settings so partial caller
// overrides still get configured weights and boosts.
func (p *QueryPipeline) fillOptions(opts domain.RetrievalOptions) domain.RetrievalOptions {
	if opts.TopK <= 0 {
		opts.TopK = p.settings.TopK
	}
	if opts.Weights.Semantic == 0 && opts.Weights.Lexical == 0 {
		opts.Weights = p.settings.Weights
	}
	if opts.Boosts == nil {
		opts.Boosts = p.settings.Boosts
	}
	if opts.BoostCeiling < 1 {
		opts.BoostCeiling = p.settings.BoostCeiling
	}
	return opts
}
