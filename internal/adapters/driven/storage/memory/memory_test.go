package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

func TestTrackerStore_EntryLifecycle(t *testing.T) {
	store := NewTrackerStore()
	ctx := context.Background()
	key := domain.EntryKey{SourceType: domain.SourceTypeFile, SourceID: "docs/a.md"}

	_, err := store.GetEntry(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entry := &domain.TrackedEntry{
		Key:         key,
		ContentHash: "hash-1",
		ChunkIDs:    []string{"chunk-1"},
		Status:      domain.StatusActive,
	}
	require.NoError(t, store.SaveEntry(ctx, entry))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{{ID: "chunk-1", Text: "text"}}))

	got, err := store.GetEntry(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.ContentHash)

	// Mutating the returned entry must not leak into the store.
	got.ChunkIDs[0] = "tampered"
	again, err := store.GetEntry(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk-1"}, again.ChunkIDs)

	require.NoError(t, store.DeleteEntry(ctx, key))
	_, err = store.GetEntry(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, "chunk-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrackerStore_ListEntriesSorted(t *testing.T) {
	store := NewTrackerStore()
	ctx := context.Background()

	for _, id := range []string{"zz", "aa", "mm"} {
		require.NoError(t, store.SaveEntry(ctx, &domain.TrackedEntry{
			Key:    domain.EntryKey{SourceType: domain.SourceTypeFile, SourceID: id},
			Status: domain.StatusActive,
		}))
	}

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "aa", entries[0].Key.SourceID)
	assert.Equal(t, "zz", entries[2].Key.SourceID)
}

func TestVectorIndex_QueryRanksBySimilarity(t *testing.T) {
	index := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "chunk-x", []float32{1, 0, 0}, nil))
	require.NoError(t, index.Upsert(ctx, "chunk-y", []float32{0, 1, 0}, nil))
	require.NoError(t, index.Upsert(ctx, "chunk-xy", []float32{1, 1, 0}, map[string]string{"k": "v"}))

	hits, err := index.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "chunk-x", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "chunk-xy", hits[1].ChunkID)
	assert.Equal(t, "chunk-y", hits[2].ChunkID)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-9)
}

func TestVectorIndex_TopNAndDelete(t *testing.T) {
	index := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "chunk-1", []float32{1, 0}, nil))
	require.NoError(t, index.Upsert(ctx, "chunk-2", []float32{0.9, 0.1}, nil))

	hits, err := index.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chunk-1", hits[0].ChunkID)

	require.NoError(t, index.Delete(ctx, []string{"chunk-1", "unknown"}))
	ids, err := index.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk-2"}, ids)
}

func TestVectorIndex_DimensionMismatchSkipped(t *testing.T) {
	index := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "chunk-3d", []float32{1, 0, 0}, nil))

	hits, err := index.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
