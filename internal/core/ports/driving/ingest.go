package driving

import (
	"context"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

// Ingestor reconciles source adapter output against the tracker store,
// materialising and retiring chunks in the vector and lexical indexes.
type Ingestor interface {
	// Reconcile processes one adapter run. For each unit it decides
	// new/changed/unchanged against the tracker store; when
	// snapshotComplete is true, tracked keys of the same source type that
	// did not appear in units are marked deleted. Per-unit failures are
	// collected in the report, never returned as an error.
	Reconcile(ctx context.Context, units []domain.SourceUnit, snapshotComplete bool) (*domain.IngestionReport, error)

	// PruneOrphans removes vector index entries whose chunk ID is not
	// referenced by any active tracked entry. Returns the number pruned.
	PruneOrphans(ctx context.Context) (int, error)
}
