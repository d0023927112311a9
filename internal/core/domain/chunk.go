package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a contiguous slice of a source unit's text, independently
// embeddable and indexable. A chunk is owned by exactly one tracked entry
// and is retired together with it.
type Chunk struct {
	// ID is derived deterministically from the parent key and slice offsets,
	// so re-chunking unchanged text yields identical IDs.
	ID string

	// ParentSourceID links back to the owning source unit.
	ParentSourceID string

	// Text is the chunk content.
	Text string

	// OffsetStart and OffsetEnd are rune offsets into the parent text.
	OffsetStart int
	OffsetEnd   int

	// Index is the ordinal position within the parent.
	Index int

	// Metadata is inherited from the parent unit plus the chunk index.
	Metadata map[string]string

	// Embedding is the vector representation, populated during ingestion.
	Embedding []float32
}

// chunkIDLen is the hex length of a chunk identifier.
const chunkIDLen = 24

// ChunkID derives a stable chunk identifier from the parent key and the
// slice offsets. Identical inputs always produce the same ID, which is what
// makes unchanged-content re-ingestion idempotent downstream.
func ChunkID(sourceType SourceType, sourceID string, start, end int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d", sourceType, sourceID, start, end)))
	return hex.EncodeToString(sum[:])[:chunkIDLen]
}
