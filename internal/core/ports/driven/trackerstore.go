package driven

import (
	"context"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// TrackerStore is the durable record of every ingested unit plus the chunk
// text owned by each entry. Backed by SQLite.
//
// The minimum persistence surface is point lookup, point write and a full
// scan; the scan drives the deletion-detection sweep and orphan pruning.
type TrackerStore interface {
	// GetEntry retrieves the tracked entry for a key.
	// Returns domain.ErrNotFound if the key has never been ingested.
	GetEntry(ctx context.Context, key domain.EntryKey) (*domain.TrackedEntry, error)

	// SaveEntry stores or updates a tracked entry.
	SaveEntry(ctx context.Context, entry *domain.TrackedEntry) error

	// DeleteEntry removes a tracked entry and its chunks.
	DeleteEntry(ctx context.Context, key domain.EntryKey) error

	// ListEntries scans all tracked entries.
	ListEntries(ctx context.Context) ([]domain.TrackedEntry, error)

	// SaveChunks stores chunk text and metadata for an entry.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a chunk by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteChunks removes chunks by ID.
	DeleteChunks(ctx context.Context, ids []string) error

	// Close releases resources.
	Close() error
}
