package driven

import (
	"context"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// LexicalIndex scores chunks by term overlap and frequency over chunk text
// and metadata. It is local, derived from tracker store content, and treated
// as safe for concurrent reads.
type LexicalIndex interface {
	// Index adds or updates a chunk in the lexical index.
	Index(ctx context.Context, chunk domain.Chunk) error

	// Remove deletes chunks from the index. Unknown IDs are ignored.
	Remove(ctx context.Context, chunkIDs []string) error

	// Score returns up to limit chunks matching the query, best first.
	// Scores are non-negative and unbounded.
	Score(ctx context.Context, query string, limit int) ([]LexicalHit, error)
}

// LexicalHit is a lexical scoring result.
type LexicalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the term-overlap/frequency score.
	Score float64
}
