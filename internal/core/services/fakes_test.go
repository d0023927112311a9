package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
)

// --- Shared in-memory fakes for service testing ---

// fakeTracker implements driven.TrackerStore in memory.
type fakeTracker struct {
	mu      sync.Mutex
	entries map[domain.EntryKey]domain.TrackedEntry
	chunks  map[string]domain.Chunk

	saveEntryErr error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		entries: make(map[domain.EntryKey]domain.TrackedEntry),
		chunks:  make(map[string]domain.Chunk),
	}
}

func (t *fakeTracker) GetEntry(_ context.Context, key domain.EntryKey) (*domain.TrackedEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := entry
	return &copied, nil
}

func (t *fakeTracker) SaveEntry(_ context.Context, entry *domain.TrackedEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saveEntryErr != nil {
		return t.saveEntryErr
	}
	t.entries[entry.Key] = *entry
	return nil
}

func (t *fakeTracker) DeleteEntry(_ context.Context, key domain.EntryKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if ok {
		for _, id := range entry.ChunkIDs {
			delete(t.chunks, id)
		}
	}
	delete(t.entries, key)
	return nil
}

func (t *fakeTracker) ListEntries(_ context.Context) ([]domain.TrackedEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.TrackedEntry, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out, nil
}

func (t *fakeTracker) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, chunk := range chunks {
		t.chunks[chunk.ID] = chunk
	}
	return nil
}

func (t *fakeTracker) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	chunk, ok := t.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := chunk
	return &copied, nil
}

func (t *fakeTracker) DeleteChunks(_ context.Context, ids []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		delete(t.chunks, id)
	}
	return nil
}

func (t *fakeTracker) Close() error { return nil }

func (t *fakeTracker) entry(key domain.EntryKey) (domain.TrackedEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	return entry, ok
}

// fakeVector implements driven.VectorIndex in memory. Query returns the
// preset hits rather than doing real similarity search.
type fakeVector struct {
	mu      sync.Mutex
	vectors map[string][]float32

	upsertCalls int
	upsertErr   error

	queryHits []driven.VectorHit
	queryErr  error
}

func newFakeVector() *fakeVector {
	return &fakeVector{vectors: make(map[string][]float32)}
}

func (v *fakeVector) Upsert(_ context.Context, chunkID string, vector []float32, _ map[string]string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.upsertCalls++
	if v.upsertErr != nil {
		return v.upsertErr
	}
	v.vectors[chunkID] = vector
	return nil
}

func (v *fakeVector) Delete(_ context.Context, chunkIDs []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range chunkIDs {
		delete(v.vectors, id)
	}
	return nil
}

func (v *fakeVector) Query(_ context.Context, _ []float32, topN int) ([]driven.VectorHit, error) {
	if v.queryErr != nil {
		return nil, v.queryErr
	}
	hits := v.queryHits
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

func (v *fakeVector) ListIDs(_ context.Context) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, 0, len(v.vectors))
	for id := range v.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (v *fakeVector) Close() error { return nil }

func (v *fakeVector) has(chunkID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.vectors[chunkID]
	return ok
}

// fakeLexical implements driven.LexicalIndex in memory. Score returns the
// preset hits.
type fakeLexical struct {
	mu      sync.Mutex
	indexed map[string]domain.Chunk

	scoreHits []driven.LexicalHit
	scoreErr  error
}

func newFakeLexical() *fakeLexical {
	return &fakeLexical{indexed: make(map[string]domain.Chunk)}
}

func (l *fakeLexical) Index(_ context.Context, chunk domain.Chunk) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.indexed[chunk.ID] = chunk
	return nil
}

func (l *fakeLexical) Remove(_ context.Context, chunkIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range chunkIDs {
		delete(l.indexed, id)
	}
	return nil
}

func (l *fakeLexical) Score(_ context.Context, _ string, limit int) ([]driven.LexicalHit, error) {
	if l.scoreErr != nil {
		return nil, l.scoreErr
	}
	hits := l.scoreHits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// fakeEmbedder implements driven.EmbeddingProvider with deterministic
// vectors. failBatches makes the first N batch calls fail; failOn makes any
// batch containing that text fail permanently.
type fakeEmbedder struct {
	mu          sync.Mutex
	batchCalls  int
	singleCalls int
	failBatches int
	failOn      string
	embedErr    error
}

var errEmbedUnavailable = errors.New("embedding backend unavailable")

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.singleCalls++
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	return fakeVectorFor(text), nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchCalls++
	if e.failBatches > 0 {
		e.failBatches--
		return nil, errEmbedUnavailable
	}
	for _, text := range texts {
		if e.failOn != "" && strings.Contains(text, e.failOn) {
			return nil, errEmbedUnavailable
		}
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = fakeVectorFor(text)
	}
	return vectors, nil
}

func (e *fakeEmbedder) Dimensions() int              { return 4 }
func (e *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (e *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedder) Close() error                 { return nil }

func (e *fakeEmbedder) batches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batchCalls
}

func fakeVectorFor(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{sum, float32(len(text)), 1, 0}
}

// fakeScorer implements driven.RelevanceScorer with preset scores.
type fakeScorer struct {
	scores []float64
	err    error
	calls  int
}

func (s *fakeScorer) Score(ctx context.Context, _ string, texts []string) ([]float64, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.scores != nil {
		return s.scores, nil
	}
	out := make([]float64, len(texts))
	return out, nil
}

// fakeCounter implements driven.TokenCounter by counting whitespace-split
// words.
type fakeCounter struct{}

func (fakeCounter) Count(text string) int {
	return len(strings.Fields(text))
}
