package driven

import "context"

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
// The index's internal search algorithm is an external capability; only
// membership is managed by the ingestion coordinator.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for a chunk.
	Upsert(ctx context.Context, chunkID string, vector []float32, metadata map[string]string) error

	// Delete removes vectors by chunk ID. Unknown IDs are ignored.
	Delete(ctx context.Context, chunkIDs []string) error

	// Query returns up to topN candidates nearest to the query vector,
	// most similar first.
	Query(ctx context.Context, vector []float32, topN int) ([]VectorHit, error)

	// ListIDs enumerates all chunk IDs present in the index.
	// Used by the orphan-pruning sweep.
	ListIDs(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity reported by the index
	// ([0,1] for cosine, metric-dependent otherwise).
	Score float64

	// Metadata is the payload stored alongside the vector.
	Metadata map[string]string
}
