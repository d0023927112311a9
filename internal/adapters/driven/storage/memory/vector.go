package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
)

// VectorIndex is a brute-force in-memory vector index using cosine
// similarity. Adequate for local corpora; larger deployments use the
// qdrant adapter instead.
type VectorIndex struct {
	mu     sync.RWMutex
	points map[string]point
}

type point struct {
	vector   []float32
	norm     float64
	metadata map[string]string
}

var _ driven.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{points: make(map[string]point)}
}

// Upsert inserts or replaces the vector for a chunk.
func (v *VectorIndex) Upsert(_ context.Context, chunkID string, vector []float32, metadata map[string]string) error {
	if len(vector) == 0 {
		return domain.ErrInvalidConfig
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	copied := append([]float32(nil), vector...)
	v.points[chunkID] = point{
		vector:   copied,
		norm:     norm(copied),
		metadata: metadata,
	}
	return nil
}

// Delete removes vectors by chunk ID. Unknown IDs are ignored.
func (v *VectorIndex) Delete(_ context.Context, chunkIDs []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, id := range chunkIDs {
		delete(v.points, id)
	}
	return nil
}

// Query returns up to topN candidates by cosine similarity, best first.
// Ties break by chunk ID so results are deterministic.
func (v *VectorIndex) Query(_ context.Context, vector []float32, topN int) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	queryNorm := norm(vector)
	if queryNorm == 0 {
		return []driven.VectorHit{}, nil
	}

	hits := make([]driven.VectorHit, 0, len(v.points))
	for id, p := range v.points {
		if len(p.vector) != len(vector) || p.norm == 0 {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:  id,
			Score:    dot(vector, p.vector) / (queryNorm * p.norm),
			Metadata: p.metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

// ListIDs enumerates all chunk IDs present in the index.
func (v *VectorIndex) ListIDs(_ context.Context) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]string, 0, len(v.points))
	for id := range v.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the in-memory index.
func (v *VectorIndex) Close() error {
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
