// Package sqlite implements the tracker store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragline-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragline-cli/internal/core/domain"
	"github.com/custodia-labs/ragline-cli/internal/core/ports/driven"
)

// Store is the SQLite-backed tracker store. It owns the durable record of
// every ingested unit and the chunk text each entry carries.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.TrackerStore = (*Store)(nil)

// NewStore opens (or creates) the tracker database under dataDir.
// If dataDir is empty, defaults to ~/.ragline/data/tracker.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragline", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "tracker.db")

	// WAL mode: reconciliation workers write while queries read.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// GetEntry retrieves the tracked entry for a key.
func (s *Store) GetEntry(ctx context.Context, key domain.EntryKey) (*domain.TrackedEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT content_hash, chunk_ids, status, ingested_at, updated_at
		FROM entries WHERE source_type = ? AND source_id = ?
	`, string(key.SourceType), key.SourceID)

	entry := domain.TrackedEntry{Key: key}
	var chunkIDsJSON, status string
	if err := row.Scan(&entry.ContentHash, &chunkIDsJSON, &status,
		&entry.IngestedAt, &entry.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}

	if err := json.Unmarshal([]byte(chunkIDsJSON), &entry.ChunkIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling chunk ids: %w", err)
	}
	entry.Status = domain.EntryStatus(status)

	return &entry, nil
}

// SaveEntry stores or updates a tracked entry.
func (s *Store) SaveEntry(ctx context.Context, entry *domain.TrackedEntry) error {
	chunkIDsJSON, err := json.Marshal(entry.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshalling chunk ids: %w", err)
	}

	now := time.Now().UTC()
	if entry.IngestedAt.IsZero() {
		entry.IngestedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (source_type, source_id, content_hash, chunk_ids, status, ingested_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_type, source_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_ids = excluded.chunk_ids,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, string(entry.Key.SourceType), entry.Key.SourceID, entry.ContentHash,
		string(chunkIDsJSON), string(entry.Status), entry.IngestedAt, entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	return nil
}

// DeleteEntry removes a tracked entry and its chunks.
func (s *Store) DeleteEntry(ctx context.Context, key domain.EntryKey) error {
	entry, err := s.GetEntry(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.DeleteChunks(ctx, entry.ChunkIDs); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"DELETE FROM entries WHERE source_type = ? AND source_id = ?",
		string(key.SourceType), key.SourceID)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}

// ListEntries scans all tracked entries.
func (s *Store) ListEntries(ctx context.Context) ([]domain.TrackedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_type, source_id, content_hash, chunk_ids, status, ingested_at, updated_at
		FROM entries ORDER BY source_type, source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.TrackedEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.TrackedEntry
		var sourceType, chunkIDsJSON, status string
		if err := rows.Scan(&sourceType, &entry.Key.SourceID, &entry.ContentHash,
			&chunkIDsJSON, &status, &entry.IngestedAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if err := json.Unmarshal([]byte(chunkIDsJSON), &entry.ChunkIDs); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk ids: %w", err)
		}
		entry.Key.SourceType = domain.SourceType(sourceType)
		entry.Status = domain.EntryStatus(status)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}

// SaveChunks stores chunk text and metadata. Embeddings are not persisted
// here; the vector index owns them.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", chunk.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (id, parent_source_id, text, offset_start, offset_end, chunk_index, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				parent_source_id = excluded.parent_source_id,
				text = excluded.text,
				offset_start = excluded.offset_start,
				offset_end = excluded.offset_end,
				chunk_index = excluded.chunk_index,
				metadata = excluded.metadata
		`, chunk.ID, chunk.ParentSourceID, chunk.Text,
			chunk.OffsetStart, chunk.OffsetEnd, chunk.Index, string(metadataJSON))
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, parent_source_id, text, offset_start, offset_end, chunk_index, metadata
		FROM chunks WHERE id = ?
	`, id)

	var chunk domain.Chunk
	var metadataJSON string
	if err := row.Scan(&chunk.ID, &chunk.ParentSourceID, &chunk.Text,
		&chunk.OffsetStart, &chunk.OffsetEnd, &chunk.Index, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	return &chunk, nil
}

// DeleteChunks removes chunks by ID.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}
