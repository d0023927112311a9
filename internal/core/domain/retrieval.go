package domain

// Weights controls how semantic and lexical scores are combined.
// The two weights need not sum to 1; that is the caller's choice.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DomainBoost is a multiplicative score adjustment for candidates whose
// text or metadata matches a controlled-vocabulary pattern.
type DomainBoost struct {
	// Pattern is matched case-insensitively against chunk text and
	// metadata values.
	Pattern string

	// Multiplier is applied to the combined score on match. Must be >= 1.
	Multiplier float64
}

// RetrievalOptions configures a hybrid retrieval query.
type RetrievalOptions struct {
	// TopK is the number of candidates to return.
	TopK int

	// Weights combines the normalised semantic and lexical scores.
	Weights Weights

	// Boosts is the domain boost table. Multiple matches compose
	// multiplicatively, capped at BoostCeiling.
	Boosts []DomainBoost

	// BoostCeiling caps the composed boost multiplier. Zero means the
	// default ceiling.
	BoostCeiling float64

	// Overfetch is the semantic overfetch factor relative to TopK, leaving
	// room for reranking and merging. Zero means the default (3).
	Overfetch int

	// LexicalOnlyCap bounds how many lexical-only hits (not returned by the
	// vector index) join the candidate pool. Zero means the default.
	LexicalOnlyCap int
}

// RetrievalCandidate is a scored chunk produced for a single query.
// Candidates are created per query and discarded when it completes.
type RetrievalCandidate struct {
	// ChunkID identifies the underlying chunk.
	ChunkID string

	// Text is the chunk content.
	Text string

	// Metadata is the chunk metadata.
	Metadata map[string]string

	// SemanticScore is the raw similarity reported by the vector index.
	SemanticScore float64

	// LexicalScore is the raw term-overlap score. Non-negative, unbounded.
	LexicalScore float64

	// CombinedScore is the weighted, boosted hybrid score.
	CombinedScore float64

	// BoostApplied is the composed boost multiplier (>= 1).
	BoostApplied float64

	// RerankScore is set by the reranking stage. When reranking runs it
	// supersedes CombinedScore for ordering; it is never blended with it.
	RerankScore float64
}
