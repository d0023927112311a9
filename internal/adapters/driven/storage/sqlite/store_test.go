package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(id string) *domain.TrackedEntry {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.TrackedEntry{
		Key:         domain.EntryKey{SourceType: domain.SourceTypeFile, SourceID: id},
		ContentHash: "hash-" + id,
		ChunkIDs:    []string{"chunk-" + id + "-0", "chunk-" + id + "-1"},
		Status:      domain.StatusActive,
		IngestedAt:  now,
		UpdatedAt:   now,
	}
}

func TestStore_EntryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("docs/a.md")
	require.NoError(t, store.SaveEntry(ctx, entry))

	got, err := store.GetEntry(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, entry.ContentHash, got.ContentHash)
	assert.Equal(t, entry.ChunkIDs, got.ChunkIDs)
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestStore_GetEntryNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetEntry(context.Background(),
		domain.EntryKey{SourceType: domain.SourceTypeFile, SourceID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveEntryUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("docs/a.md")
	require.NoError(t, store.SaveEntry(ctx, entry))

	entry.ContentHash = "hash-v2"
	entry.Status = domain.StatusDeleted
	entry.ChunkIDs = nil
	require.NoError(t, store.SaveEntry(ctx, entry))

	got, err := store.GetEntry(ctx, entry.Key)
	require.NoError(t, err)
	assert.Equal(t, "hash-v2", got.ContentHash)
	assert.Equal(t, domain.StatusDeleted, got.Status)
	assert.Empty(t, got.ChunkIDs)

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "upsert must not duplicate the key")
}

func TestStore_SameIDAcrossSourceTypes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fileEntry := testEntry("shared-id")
	wikiEntry := testEntry("shared-id")
	wikiEntry.Key.SourceType = domain.SourceTypeWiki
	wikiEntry.ContentHash = "wiki-hash"

	require.NoError(t, store.SaveEntry(ctx, fileEntry))
	require.NoError(t, store.SaveEntry(ctx, wikiEntry))

	got, err := store.GetEntry(ctx, wikiEntry.Key)
	require.NoError(t, err)
	assert.Equal(t, "wiki-hash", got.ContentHash)

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_ChunkRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{
			ID:             "chunk-1",
			ParentSourceID: "docs/a.md",
			Text:           "first slice of the document",
			OffsetStart:    0,
			OffsetEnd:      27,
			Index:          0,
			Metadata:       map[string]string{"title": "A"},
		},
		{
			ID:             "chunk-2",
			ParentSourceID: "docs/a.md",
			Text:           "second slice",
			OffsetStart:    20,
			OffsetEnd:      32,
			Index:          1,
		},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.GetChunk(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "first slice of the document", got.Text)
	assert.Equal(t, map[string]string{"title": "A"}, got.Metadata)
	assert.Equal(t, 0, got.Index)

	got, err = store.GetChunk(ctx, "chunk-2")
	require.NoError(t, err)
	assert.Nil(t, got.Metadata)

	require.NoError(t, store.DeleteChunks(ctx, []string{"chunk-1", "chunk-2"}))
	_, err = store.GetChunk(ctx, "chunk-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteEntryRemovesChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("docs/a.md")
	require.NoError(t, store.SaveEntry(ctx, entry))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: entry.ChunkIDs[0], ParentSourceID: "docs/a.md", Text: "one"},
		{ID: entry.ChunkIDs[1], ParentSourceID: "docs/a.md", Text: "two"},
	}))

	require.NoError(t, store.DeleteEntry(ctx, entry.Key))

	_, err := store.GetEntry(ctx, entry.Key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, entry.ChunkIDs[0])
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveEntry(context.Background(), testEntry("docs/a.md")))
	require.NoError(t, store.Close())

	// Reopening reruns the migration scan against an up-to-date schema.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
