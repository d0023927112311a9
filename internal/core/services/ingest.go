package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragline-cli/internal/chunker"
	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragline-cli/internal/logger"
)

// Ensure IngestionCoordinator implements the interface.
var _ driving.Ingestor = (*IngestionCoordinator)(nil)

// Embedding retry policy during ingestion.
const (
	defaultEmbedRetries   = 3
	defaultEmbedRetryBase = 500 * time.Millisecond
)

// IngestionCoordinator reconciles adapter output against the tracker store.
// It is the only component that mutates the tracker store and the membership
// of the vector and lexical indexes.
type IngestionCoordinator struct {
	tracker  driven.TrackerStore
	vector   driven.VectorIndex
	lexical  driven.LexicalIndex
	embedder driven.EmbeddingProvider
	splitter *chunker.Chunker

	workers    int
	retries    int
	retryBase  time.Duration
	entryLocks *keyLock
}

// NewIngestionCoordinator creates an ingestion coordinator.
// workers bounds how many units are reconciled concurrently; mutations to a
// single entry key are always serialised regardless of worker count.
func NewIngestionCoordinator(
	tracker driven.TrackerStore,
	vector driven.VectorIndex,
	lexical driven.LexicalIndex,
	embedder driven.EmbeddingProvider,
	splitter *chunker.Chunker,
	workers int,
) *IngestionCoordinator {
	if workers <= 0 {
		workers = domain.DefaultWorkers
	}
	return &IngestionCoordinator{
		tracker:    tracker,
		vector:     vector,
		lexical:    lexical,
		embedder:   embedder,
		splitter:   splitter,
		workers:    workers,
		retries:    defaultEmbedRetries,
		retryBase:  defaultEmbedRetryBase,
		entryLocks: newKeyLock(),
	}
}

// Reconcile processes one adapter run with bounded parallelism.
// Per-unit failures are collected in the report and never abort the batch;
// only context cancellation stops the run early, leaving completed units
// fully committed.
func (c *IngestionCoordinator) Reconcile(
	ctx context.Context, units []domain.SourceUnit, snapshotComplete bool,
) (*domain.IngestionReport, error) {
	report := &domain.IngestionReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	var reportMu sync.Mutex

	logger.Section("Ingestion Reconciliation")
	logger.Info("Run %s: %d units, snapshot=%t, workers=%d",
		report.RunID, len(units), snapshotComplete, c.workers)
	defer logger.Timed("reconcile")()

	seen := make(map[domain.EntryKey]bool, len(units))
	types := make(map[domain.SourceType]bool)
	for _, u := range units {
		seen[u.Key()] = true
		types[u.SourceType] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, unit := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			state, err := c.reconcileUnit(gctx, unit)

			reportMu.Lock()
			defer reportMu.Unlock()
			if err != nil {
				// Cancellation stops the run; anything else is isolated.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warn("Unit %s failed: %v", unit.SourceID, err)
				report.Failures = append(report.Failures, domain.UnitFailure{
					SourceID: unit.SourceID,
					Err:      err,
				})
				return nil
			}
			switch state {
			case domain.StateNew:
				report.New++
			case domain.StateChanged:
				report.Changed++
			case domain.StateUnchanged:
				report.Unchanged++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		report.FinishedAt = time.Now().UTC()
		return report, err
	}

	if snapshotComplete {
		deleted, err := c.sweepDeleted(ctx, seen, types, report)
		if err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}
		report.Deleted = deleted
	}

	report.FinishedAt = time.Now().UTC()
	logger.Info("Run %s complete: new=%d changed=%d unchanged=%d deleted=%d failures=%d",
		report.RunID, report.New, report.Changed, report.Unchanged, report.Deleted, len(report.Failures))

	return report, nil
}

// reconcileUnit decides new/changed/unchanged for one unit and applies the
// decision. All mutations for the unit's key run under its entry lock.
func (c *IngestionCoordinator) reconcileUnit(
	ctx context.Context, unit domain.SourceUnit,
) (domain.ReconcileState, error) {
	if unit.SourceID == "" {
		return "", fmt.Errorf("unit has empty source id")
	}
	if !unit.SourceType.IsValid() {
		return "", fmt.Errorf("unknown source type %q", unit.SourceType)
	}
	if unit.ContentHash == "" {
		unit.ContentHash = domain.HashContent(unit.RawText, unit.Metadata)
	}

	key := unit.Key()
	c.entryLocks.Lock(key.String())
	defer c.entryLocks.Unlock(key.String())

	existing, err := c.tracker.GetEntry(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("get entry %s: %w", key, err)
	}

	// A retired entry whose key reappears is ingested from scratch.
	if existing != nil && existing.Status == domain.StatusDeleted {
		existing = nil
	}

	if existing != nil && existing.ContentHash == unit.ContentHash {
		// Primary cost-saving path: no chunk, embed or index calls at all.
		logger.Debug("Unchanged: %s", key)
		return domain.StateUnchanged, nil
	}

	chunks := c.splitter.Split(unit)

	if err := c.embedChunks(ctx, chunks); err != nil {
		return "", err
	}

	if err := c.insertChunks(ctx, chunks); err != nil {
		// Roll back any partially inserted chunks so the entry is either
		// fully committed or untouched.
		c.removeChunks(ctx, chunkIDs(chunks))
		return "", err
	}

	now := time.Now().UTC()
	entry := &domain.TrackedEntry{
		Key:         key,
		ContentHash: unit.ContentHash,
		ChunkIDs:    chunkIDs(chunks),
		Status:      domain.StatusActive,
		IngestedAt:  now,
		UpdatedAt:   now,
	}

	if existing == nil {
		if err := c.tracker.SaveEntry(ctx, entry); err != nil {
			c.removeChunks(ctx, entry.ChunkIDs)
			return "", fmt.Errorf("save entry %s: %w", key, err)
		}
		logger.Debug("New: %s (%d chunks)", key, len(chunks))
		return domain.StateNew, nil
	}

	// Changed: the new chunks are live before the old ones are retired, so
	// a crash mid-update duplicates rather than loses content.
	stale := subtractIDs(existing.ChunkIDs, entry.ChunkIDs)
	c.removeChunks(ctx, stale)

	entry.IngestedAt = existing.IngestedAt
	if err := c.tracker.SaveEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("save entry %s: %w", key, err)
	}

	logger.Debug("Changed: %s (%d chunks, %d retired)", key, len(chunks), len(stale))
	return domain.StateChanged, nil
}

// embedChunks populates chunk embeddings in one batched provider call,
// retried with exponential backoff a bounded number of times.
func (c *IngestionCoordinator) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := c.retryBase << (attempt - 1)
			logger.Debug("Embed retry %d/%d after %s", attempt, c.retries, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		vectors, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			lastErr = err
			continue
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("%w: embedding batch returned %d vectors for %d texts",
				domain.ErrProviderUnavailable, len(vectors), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
		return nil
	}

	return fmt.Errorf("%w: embed batch after %d retries: %v",
		domain.ErrProviderUnavailable, c.retries, lastErr)
}

// insertChunks materialises chunks in the vector index, the lexical index
// and the tracker store.
func (c *IngestionCoordinator) insertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, chunk := range chunks {
		if err := c.vector.Upsert(ctx, chunk.ID, chunk.Embedding, chunk.Metadata); err != nil {
			return fmt.Errorf("%w: upsert vector %s: %v", domain.ErrProviderUnavailable, chunk.ID, err)
		}
		if err := c.lexical.Index(ctx, chunk); err != nil {
			return fmt.Errorf("index chunk %s: %w", chunk.ID, err)
		}
	}
	if err := c.tracker.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	return nil
}

// removeChunks retires chunk IDs from all indexes and the tracker store.
// Best effort: pruning recovers anything a failed delete leaves behind.
func (c *IngestionCoordinator) removeChunks(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := c.vector.Delete(ctx, ids); err != nil {
		logger.Warn("Failed to delete %d vectors: %v", len(ids), err)
	}
	if err := c.lexical.Remove(ctx, ids); err != nil {
		logger.Warn("Failed to remove %d lexical entries: %v", len(ids), err)
	}
	if err := c.tracker.DeleteChunks(ctx, ids); err != nil {
		logger.Warn("Failed to delete %d chunk records: %v", len(ids), err)
	}
}

// sweepDeleted retires active entries of the swept source types whose key
// did not appear in the snapshot.
func (c *IngestionCoordinator) sweepDeleted(
	ctx context.Context,
	seen map[domain.EntryKey]bool,
	types map[domain.SourceType]bool,
	report *domain.IngestionReport,
) (int, error) {
	if len(types) == 0 {
		// An empty snapshot carries no type scope; refuse to infer that
		// everything was deleted.
		logger.Warn("Snapshot sweep skipped: no units in run")
		return 0, nil
	}

	entries, err := c.tracker.ListEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}

	deleted := 0
	for i := range entries {
		entry := entries[i]
		if entry.Status != domain.StatusActive || !types[entry.Key.SourceType] || seen[entry.Key] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		c.entryLocks.Lock(entry.Key.String())
		c.removeChunks(ctx, entry.ChunkIDs)
		entry.Status = domain.StatusDeleted
		entry.ChunkIDs = nil
		entry.UpdatedAt = time.Now().UTC()
		err := c.tracker.SaveEntry(ctx, &entry)
		c.entryLocks.Unlock(entry.Key.String())

		if err != nil {
			report.Failures = append(report.Failures, domain.UnitFailure{
				SourceID: entry.Key.SourceID,
				Err:      fmt.Errorf("mark deleted: %w", err),
			})
			continue
		}
		logger.Debug("Deleted: %s", entry.Key)
		deleted++
	}

	return deleted, nil
}

// PruneOrphans removes vector index entries not referenced by any active
// tracked entry. The tracker store is the single source of truth for index
// membership; anything else is a leftover from a crashed update.
func (c *IngestionCoordinator) PruneOrphans(ctx context.Context) (int, error) {
	indexed, err := c.vector.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list vector ids: %v", domain.ErrProviderUnavailable, err)
	}

	entries, err := c.tracker.ListEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}

	active := make(map[string]bool)
	for _, entry := range entries {
		if entry.Status != domain.StatusActive {
			continue
		}
		for _, id := range entry.ChunkIDs {
			active[id] = true
		}
	}

	var orphans []string
	for _, id := range indexed {
		if !active[id] {
			orphans = append(orphans, id)
		}
	}

	if len(orphans) > 0 {
		logger.Info("Pruning %d orphaned chunks", len(orphans))
		c.removeChunks(ctx, orphans)
	}

	return len(orphans), nil
}

// chunkIDs extracts the ordered IDs of a chunk slice.
func chunkIDs(chunks []domain.Chunk) []string {
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	return ids
}

// subtractIDs returns the IDs in a that are not in b, preserving order.
func subtractIDs(a, b []string) []string {
	keep := make(map[string]bool, len(b))
	for _, id := range b {
		keep[id] = true
	}
	var out []string
	for _, id := range a {
		if !keep[id] {
			out = append(out, id)
		}
	}
	return out
}
