// Package memory provides in-memory implementations of the tracker store
// and the vector index. Used for tests and for fully local runs where no
// external vector database is available.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
)

// TrackerStore is an in-memory tracker store. Contents are lost on exit.
type TrackerStore struct {
	mu      sync.RWMutex
	entries map[domain.EntryKey]domain.TrackedEntry
	chunks  map[string]domain.Chunk
}

var _ driven.TrackerStore = (*TrackerStore)(nil)

// NewTrackerStore creates an empty in-memory tracker store.
func NewTrackerStore() *TrackerStore {
	return &TrackerStore{
		entries: make(map[domain.EntryKey]domain.TrackedEntry),
		chunks:  make(map[string]domain.Chunk),
	}
}

// GetEntry retrieves the tracked entry for a key.
func (s *TrackerStore) GetEntry(_ context.Context, key domain.EntryKey) (*domain.TrackedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := entry
	copied.ChunkIDs = append([]string(nil), entry.ChunkIDs...)
	return &copied, nil
}

// SaveEntry stores or updates a tracked entry.
func (s *TrackerStore) SaveEntry(_ context.Context, entry *domain.TrackedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	copied.ChunkIDs = append([]string(nil), entry.ChunkIDs...)
	s.entries[copied.Key] = copied
	return nil
}

// DeleteEntry removes a tracked entry and its chunks.
func (s *TrackerStore) DeleteEntry(_ context.Context, key domain.EntryKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		for _, id := range entry.ChunkIDs {
			delete(s.chunks, id)
		}
	}
	delete(s.entries, key)
	return nil
}

// ListEntries scans all tracked entries in key order.
func (s *TrackerStore) ListEntries(_ context.Context) ([]domain.TrackedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.TrackedEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		copied := entry
		copied.ChunkIDs = append([]string(nil), entry.ChunkIDs...)
		entries = append(entries, copied)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
	return entries, nil
}

// SaveChunks stores chunk text and metadata.
func (s *TrackerStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *TrackerStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := chunk
	return &copied, nil
}

// DeleteChunks removes chunks by ID.
func (s *TrackerStore) DeleteChunks(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.chunks, id)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *TrackerStore) Close() error {
	return nil
}
