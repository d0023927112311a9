package domain

import "time"

// EntryStatus is the lifecycle state of a tracked entry.
type EntryStatus string

// Tracked entry statuses.
const (
	// StatusActive indicates the entry's chunks are live in the indexes.
	StatusActive EntryStatus = "active"

	// StatusDeleted indicates the entry was retired; its chunks have been
	// removed from the vector index.
	StatusDeleted EntryStatus = "deleted"
)

// EntryKey uniquely identifies a tracked entry.
type EntryKey struct {
	SourceType SourceType
	SourceID   string
}

// String returns "type/id", used for logging and keyed locking.
func (k EntryKey) String() string {
	return string(k.SourceType) + "/" + k.SourceID
}

// TrackedEntry is the persistent ingestion-state record for one source unit.
// It is the single source of truth for what exists in the vector index: any
// chunk ID present in the index but absent from an Active entry is orphaned.
type TrackedEntry struct {
	// Key identifies the unit this entry tracks.
	Key EntryKey

	// ContentHash is the hash of the unit as last ingested.
	ContentHash string

	// ChunkIDs is the ordered list of chunk identifiers owned by this entry.
	ChunkIDs []string

	// Status is Active or Deleted. At most one Active entry exists per key.
	Status EntryStatus

	// IngestedAt is when the unit was first ingested.
	IngestedAt time.Time

	// UpdatedAt is when the entry was last modified.
	UpdatedAt time.Time
}

// ReconcileState classifies the outcome for one unit during reconciliation.
type ReconcileState string

// Reconciliation outcomes.
const (
	StateNew       ReconcileState = "new"
	StateUnchanged ReconcileState = "unchanged"
	StateChanged   ReconcileState = "changed"
	StateDeleted   ReconcileState = "deleted"
)

// UnitFailure records a per-unit ingestion error.
type UnitFailure struct {
	// SourceID is the unit that failed.
	SourceID string

	// Err is the underlying failure.
	Err error
}

// IngestionReport summarises one reconciliation run.
// A failure on one unit never aborts reconciliation of the others; failures
// are collected here rather than returned as errors.
type IngestionReport struct {
	// RunID identifies this reconciliation run.
	RunID string

	// Counts per reconciliation outcome.
	New       int
	Changed   int
	Unchanged int
	Deleted   int

	// Failures lists units that could not be reconciled.
	Failures []UnitFailure

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// HasFailures returns true if any unit failed during the run.
func (r *IngestionReport) HasFailures() bool {
	return len(r.Failures) > 0
}

// Processed returns the total number of units that were reconciled,
// including failures.
func (r *IngestionReport) Processed() int {
	return r.New + r.Changed + r.Unchanged + r.Deleted + len(r.Failures)
}
