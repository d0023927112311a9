package driven

import (
	"context"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// SourceAdapter fetches raw units from one data source (files, wiki pages,
// tickets, social posts). Adapters produce text and metadata only; all
// tracking, chunking and indexing happens in the ingestion coordinator.
type SourceAdapter interface {
	// Name returns a human-readable adapter name.
	Name() string

	// Type returns the source type this adapter produces.
	Type() domain.SourceType

	// Capabilities returns what this adapter supports.
	Capabilities() AdapterCapabilities

	// Units streams all current units from the source.
	// Both channels are closed when the stream ends.
	Units(ctx context.Context) (<-chan domain.SourceUnit, <-chan error)

	// Watch listens for live changes, emitting the updated unit.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.SourceUnit, error)

	// Close releases resources.
	Close() error
}

// AdapterCapabilities describes what a source adapter supports.
type AdapterCapabilities struct {
	// SnapshotComplete indicates a Units run represents the full current
	// set of live units, enabling deletion inference for keys that did not
	// appear. Incremental-only adapters must leave this false; deletions
	// are then never inferred.
	SnapshotComplete bool

	// SupportsWatch indicates the adapter can push live change events.
	SupportsWatch bool
}
