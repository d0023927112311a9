// Package chunker splits source unit text into overlapping segments under
// length constraints. Splitting prefers sentence and paragraph boundaries
// near the size limit and is fully deterministic: identical input always
// yields identical boundaries and therefore identical chunk IDs.
package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// toleranceDivisor controls the boundary search window: a boundary is
// preferred over a hard cut when it lies within maxSize/toleranceDivisor
// runes before the limit.
const toleranceDivisor = 5

// Chunker splits text into overlapping chunks. Sizes are in runes.
type Chunker struct {
	maxSize   int
	overlap   int
	tolerance int
}

// New creates a chunker. maxSize must exceed overlap, which must be >= 0;
// anything else wraps domain.ErrInvalidConfig.
func New(maxSize, overlap int) (*Chunker, error) {
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be >= 0, got %d", domain.ErrInvalidConfig, overlap)
	}
	if maxSize <= overlap {
		return nil, fmt.Errorf("%w: max size (%d) must exceed overlap (%d)",
			domain.ErrInvalidConfig, maxSize, overlap)
	}
	return &Chunker{
		maxSize:   maxSize,
		overlap:   overlap,
		tolerance: maxSize / toleranceDivisor,
	}, nil
}

// Split partitions the unit's text into chunks. Each chunk after the first
// begins overlap runes before the previous chunk's end, so adjacent chunks
// share a verifiable overlapping region. Empty or whitespace-only text
// produces zero chunks.
func (c *Chunker) Split(unit domain.SourceUnit) []domain.Chunk {
	if strings.TrimSpace(unit.RawText) == "" {
		return nil
	}

	runes := []rune(unit.RawText)
	total := len(runes)

	var chunks []domain.Chunk
	start := 0
	for start < total {
		end := start + c.maxSize
		if end >= total {
			end = total
		} else {
			end = c.cutPoint(runes, start, end)
		}

		chunks = append(chunks, c.newChunk(unit, runes, start, end, len(chunks)))

		if end == total {
			break
		}

		next := end - c.overlap
		if next <= start {
			// Boundary cut plus overlap would stall; force progress.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// cutPoint finds the split position for a chunk starting at start whose
// hard limit is limit. It scans backward within the tolerance window for a
// paragraph break, then a sentence terminator; failing both, it hard-cuts.
func (c *Chunker) cutPoint(runes []rune, start, limit int) int {
	lowest := limit - c.tolerance
	if lowest <= start {
		lowest = start + 1
	}

	// Paragraph break: cut after the blank line.
	for i := limit; i > lowest; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}

	// Sentence terminator followed by whitespace: cut after the whitespace.
	for i := limit; i > lowest; i-- {
		if isSpace(runes[i-1]) && i >= 2 && isSentenceEnd(runes[i-2]) {
			return i
		}
	}

	return limit
}

func (c *Chunker) newChunk(unit domain.SourceUnit, runes []rune, start, end, index int) domain.Chunk {
	metadata := make(map[string]string, len(unit.Metadata)+1)
	for k, v := range unit.Metadata {
		metadata[k] = v
	}
	metadata["chunk_index"] = strconv.Itoa(index)

	return domain.Chunk{
		ID:             domain.ChunkID(unit.SourceType, unit.SourceID, start, end),
		ParentSourceID: unit.SourceID,
		Text:           string(runes[start:end]),
		OffsetStart:    start,
		OffsetEnd:      end,
		Index:          index,
		Metadata:       metadata,
	}
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
