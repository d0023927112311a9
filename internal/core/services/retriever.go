package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// Retrieval defaults.
const (
	defaultOverfetch    = 3
	defaultBoostCeiling = domain.DefaultBoostCeiling
)

// HybridRetriever combines semantic candidates from the vector index with
// lexical term-overlap scoring, applying weighted combination and domain
// boosts. It is read-only with respect to all stores and safe for
// concurrent queries.
type HybridRetriever struct {
	vector   driven.VectorIndex
	lexical  driven.LexicalIndex
	embedder driven.EmbeddingProvider
	tracker  driven.TrackerStore
}

// NewHybridRetriever creates a hybrid retriever.
func NewHybridRetriever(
	vector driven.VectorIndex,
	lexical driven.LexicalIndex,
	embedder driven.EmbeddingProvider,
	tracker driven.TrackerStore,
) *HybridRetriever {
	return &HybridRetriever{
		vector:   vector,
		lexical:  lexical,
		embedder: embedder,
		tracker:  tracker,
	}
}

// candidate accumulates per-family raw scores before combination.
type candidate struct {
	chunkID  string
	semantic float64
	lexical  float64
}

// Retrieve returns the topK best candidates for the query.
// The semantic fetch and lexical scoring run concurrently; each family's
// scores are min-max normalised over the current pool before the weighted
// combination, since raw semantic and lexical scores are not comparable.
func (r *HybridRetriever) Retrieve(
	ctx context.Context, query string, opts domain.RetrievalOptions,
) ([]domain.RetrievalCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidQuery)
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: topK must be > 0", domain.ErrInvalidQuery)
	}

	overfetch := opts.Overfetch
	if overfetch <= 0 {
		overfetch = defaultOverfetch
	}
	lexicalCap := opts.LexicalOnlyCap
	if lexicalCap <= 0 {
		lexicalCap = opts.TopK
	}
	fetchN := opts.TopK * overfetch

	logger.Section("Hybrid Retrieval")
	logger.Debug("Query: %q topK=%d fetchN=%d weights=%.2f/%.2f",
		query, opts.TopK, fetchN, opts.Weights.Semantic, opts.Weights.Lexical)

	// The two families are independent; fetch them concurrently.
	var (
		wg           sync.WaitGroup
		semanticHits []driven.VectorHit
		lexicalHits  []driven.LexicalHit
		semanticErr  error
		lexicalErr   error
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		semanticHits, semanticErr = r.semanticCandidates(ctx, query, fetchN)
	}()

	go func() {
		defer wg.Done()
		lexicalHits, lexicalErr = r.lexical.Score(ctx, query, fetchN)
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Degrade to the surviving family when only one fails.
	if semanticErr != nil && lexicalErr != nil {
		return nil, fmt.Errorf("%w: semantic: %v; lexical: %v",
			domain.ErrProviderUnavailable, semanticErr, lexicalErr)
	}
	if semanticErr != nil {
		logger.Warn("Semantic retrieval failed, using lexical only: %v", semanticErr)
	}
	if lexicalErr != nil {
		logger.Warn("Lexical retrieval failed, using semantic only: %v", lexicalErr)
	}

	pool := mergeCandidatePool(semanticHits, lexicalHits, lexicalCap)
	logger.Debug("Candidate pool: %d semantic, %d lexical, %d merged",
		len(semanticHits), len(lexicalHits), len(pool))
	if len(pool) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	candidates, err := r.hydrate(ctx, pool)
	if err != nil {
		return nil, err
	}

	combineScores(candidates, opts.Weights)
	applyBoosts(candidates, opts.Boosts, boostCeiling(opts))
	sortCandidates(candidates)

	if len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}
	logger.Info("Retrieved %d candidates", len(candidates))
	return candidates, nil
}

// semanticCandidates embeds the query and fetches nearest neighbours.
func (r *HybridRetriever) semanticCandidates(
	ctx context.Context, query string, limit int,
) ([]driven.VectorHit, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.vector.Query(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

// mergeCandidatePool unions the semantic hits with lexical hits. Lexical
// hits already in the semantic set contribute their score; lexical-only
// hits join the pool best-first up to lexicalCap.
func mergeCandidatePool(
	semanticHits []driven.VectorHit, lexicalHits []driven.LexicalHit, lexicalCap int,
) []candidate {
	byID := make(map[string]*candidate, len(semanticHits))
	order := make([]string, 0, len(semanticHits))

	for _, hit := range semanticHits {
		if _, ok := byID[hit.ChunkID]; ok {
			continue
		}
		byID[hit.ChunkID] = &candidate{chunkID: hit.ChunkID, semantic: hit.Score}
		order = append(order, hit.ChunkID)
	}

	added := 0
	for _, hit := range lexicalHits {
		if existing, ok := byID[hit.ChunkID]; ok {
			existing.lexical = hit.Score
			continue
		}
		if added >= lexicalCap {
			continue
		}
		byID[hit.ChunkID] = &candidate{chunkID: hit.ChunkID, lexical: hit.Score}
		order = append(order, hit.ChunkID)
		added++
	}

	pool := make([]candidate, 0, len(order))
	for _, id := range order {
		pool = append(pool, *byID[id])
	}
	return pool
}

// hydrate loads chunk text and metadata for the pool. Chunks deleted since
// the indexes were queried are skipped.
func (r *HybridRetriever) hydrate(
	ctx context.Context, pool []candidate,
) ([]domain.RetrievalCandidate, error) {
	out := make([]domain.RetrievalCandidate, 0, len(pool))
	for _, c := range pool {
		chunk, err := r.tracker.GetChunk(ctx, c.chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", c.chunkID, err)
		}
		out = append(out, domain.RetrievalCandidate{
			ChunkID:       c.chunkID,
			Text:          chunk.Text,
			Metadata:      chunk.Metadata,
			SemanticScore: c.semantic,
			LexicalScore:  c.lexical,
			BoostApplied:  1.0,
		})
	}
	return out, nil
}

// combineScores min-max normalises each score family over the current pool
// and applies the weighted hybrid formula. Raw scores are left untouched
// for tie-breaking. Normalisation is pool-relative per query, which keeps a
// single query deterministic at the cost of score stability across queries
// with different candidate pools.
func combineScores(candidates []domain.RetrievalCandidate, w domain.Weights) {
	if len(candidates) == 0 {
		return
	}

	semMin, semMax := candidates[0].SemanticScore, candidates[0].SemanticScore
	lexMin, lexMax := candidates[0].LexicalScore, candidates[0].LexicalScore
	for _, c := range candidates[1:] {
		semMin, semMax = minMax(semMin, semMax, c.SemanticScore)
		lexMin, lexMax = minMax(lexMin, lexMax, c.LexicalScore)
	}

	for i := range candidates {
		normSemantic := normalise(candidates[i].SemanticScore, semMin, semMax)
		normLexical := normalise(candidates[i].LexicalScore, lexMin, lexMax)
		candidates[i].CombinedScore = w.Semantic*normSemantic + w.Lexical*normLexical
	}
}

func minMax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

// normalise maps v into [0,1] over [lo,hi]. A degenerate range maps every
// positive score to 1 and everything else to 0.
func normalise(v, lo, hi float64) float64 {
	if hi > lo {
		return (v - lo) / (hi - lo)
	}
	if v > 0 {
		return 1
	}
	return 0
}

// applyBoosts multiplies combined scores by the composed boost of all
// matching patterns, capped at ceiling. Patterns match case-insensitively
// against chunk text and metadata values.
func applyBoosts(candidates []domain.RetrievalCandidate, boosts []domain.DomainBoost, ceiling float64) {
	if len(boosts) == 0 {
		return
	}
	for i := range candidates {
		multiplier := 1.0
		text := strings.ToLower(candidates[i].Text)
		for _, boost := range boosts {
			pattern := strings.ToLower(boost.Pattern)
			if strings.Contains(text, pattern) || metadataMatches(candidates[i].Metadata, pattern) {
				multiplier *= boost.Multiplier
			}
		}
		if multiplier > ceiling {
			multiplier = ceiling
		}
		candidates[i].BoostApplied = multiplier
		candidates[i].CombinedScore *= multiplier
	}
}

func metadataMatches(metadata map[string]string, pattern string) bool {
	for _, v := range metadata {
		if strings.Contains(strings.ToLower(v), pattern) {
			return true
		}
	}
	return false
}

// sortCandidates orders by boosted combined score descending, breaking
// ties by raw semantic score, then raw lexical score, then chunk ID, so
// the ordering is fully deterministic.
func sortCandidates(candidates []domain.RetrievalCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.SemanticScore != b.SemanticScore {
			return a.SemanticScore > b.SemanticScore
		}
		if a.LexicalScore != b.LexicalScore {
			return a.LexicalScore > b.LexicalScore
		}
		return a.ChunkID < b.ChunkID
	})
}

func boostCeiling(opts domain.RetrievalOptions) float64 {
	if opts.BoostCeiling >= 1 {
		return opts.BoostCeiling
	}
	return defaultBoostCeiling
}
