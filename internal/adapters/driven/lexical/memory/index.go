// Package memory implements the lexical index as an in-memory inverted
// index with TF-IDF scoring. The index is derived entirely from tracker
// store content and is rebuilt on startup.
package memory

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
)

var reTerm = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// Index is an inverted index over chunk text and metadata values.
type Index struct {
	mu sync.RWMutex

	// term -> chunkID -> term frequency
	postings map[string]map[string]int

	// chunkID -> number of terms, for length normalisation
	lengths map[string]int
}

var _ driven.LexicalIndex = (*Index)(nil)

// NewIndex creates an empty lexical index.
func NewIndex() *Index {
	return &Index{
		postings: make(map[string]map[string]int),
		lengths:  make(map[string]int),
	}
}

// Index adds or updates a chunk. Re-indexing an existing ID replaces its
// postings.
func (idx *Index) Index(_ context.Context, chunk domain.Chunk) error {
	terms := tokenize(chunk.Text)
	for _, v := range chunk.Metadata {
		terms = append(terms, tokenize(v)...)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(chunk.ID)

	for _, term := range terms {
		byChunk, ok := idx.postings[term]
		if !ok {
			byChunk = make(map[string]int)
			idx.postings[term] = byChunk
		}
		byChunk[chunk.ID]++
	}
	idx.lengths[chunk.ID] = len(terms)
	return nil
}

// Remove deletes chunks from the index. Unknown IDs are ignored.
func (idx *Index) Remove(_ context.Context, chunkIDs []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, id := range chunkIDs {
		idx.removeLocked(id)
	}
	return nil
}

func (idx *Index) removeLocked(chunkID string) {
	if _, ok := idx.lengths[chunkID]; !ok {
		return
	}
	for term, byChunk := range idx.postings {
		delete(byChunk, chunkID)
		if len(byChunk) == 0 {
			delete(idx.postings, term)
		}
	}
	delete(idx.lengths, chunkID)
}

// Score returns up to limit chunks matching the query, best first.
// Scoring is TF-IDF summed over query terms, with term frequency dampened
// by chunk length so long chunks do not dominate on volume alone.
func (idx *Index) Score(_ context.Context, query string, limit int) ([]driven.LexicalHit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []driven.LexicalHit{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	totalChunks := len(idx.lengths)
	if totalChunks == 0 {
		return []driven.LexicalHit{}, nil
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		byChunk, ok := idx.postings[term]
		if !ok {
			continue
		}

		idf := math.Log(float64(totalChunks)/(float64(len(byChunk))+1)) + 1
		for chunkID, freq := range byChunk {
			length := idx.lengths[chunkID]
			if length == 0 {
				continue
			}
			tf := float64(freq) / float64(length)
			scores[chunkID] += tf * idf
		}
	}

	hits := make([]driven.LexicalHit, 0, len(scores))
	for chunkID, score := range scores {
		hits = append(hits, driven.LexicalHit{ChunkID: chunkID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// tokenize lowercases and extracts identifier-like terms.
func tokenize(text string) []string {
	matches := reTerm.FindAllString(text, -1)
	terms := make([]string, 0, len(matches))
	for _, m := range matches {
		terms = append(terms, strings.ToLower(m))
	}
	return terms
}
