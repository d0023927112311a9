package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// SourceType identifies the kind of adapter that produced a unit.
type SourceType string

// Known source types.
const (
	SourceTypeFile   SourceType = "file"
	SourceTypeWiki   SourceType = "wiki"
	SourceTypeTicket SourceType = "ticket"
	SourceTypeSocial SourceType = "social"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeFile, SourceTypeWiki, SourceTypeTicket, SourceTypeSocial:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// SourceUnit is one fetchable item emitted by a source adapter.
// It is consumed by the ingestion coordinator and never persisted directly.
type SourceUnit struct {
	// SourceID is a stable identifier, unique within a source type.
	SourceID string

	// SourceType identifies the producing adapter family.
	SourceType SourceType

	// RawText is the full text content of the unit.
	RawText string

	// Metadata contains adapter-supplied key-value pairs
	// (title, url, author, timestamp, ...).
	Metadata map[string]string

	// ContentHash covers RawText plus metadata. Unchanged hashes skip
	// re-chunking and re-embedding entirely.
	ContentHash string
}

// Key returns the tracking key for this unit.
func (u SourceUnit) Key() EntryKey {
	return EntryKey{SourceType: u.SourceType, SourceID: u.SourceID}
}

// HashContent computes the content hash over raw text and metadata.
// Metadata keys are visited in sorted order so the hash is deterministic.
func HashContent(rawText string, metadata map[string]string) string {
	h := sha256.New()
	h.Write([]byte(rawText))

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(metadata[k]))
	}

	return hex.EncodeToString(h.Sum(nil))
}
