// Package memory stores and retrieves free-text context entries for the
// orchestrator and agents.
//
// Two interchangeable backends implement the same Store contract: a Qdrant
// vector backend (embeddings via the AI gateway) and an in-process
// keyword-overlap backend used when the vector index or an embedding
// provider is unavailable. Callers never see a different contract shape
// between backends, only a different ranking quality.
package memory

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for memory operations.
var (
	// ErrEntryNotFound is returned when an entry id is unknown.
	ErrEntryNotFound = errors.New("memory entry not found")

	// ErrEmptyContent indicates an entry with no content.
	ErrEmptyContent = errors.New("empty entry content")

	// ErrEmptyQuery indicates an empty retrieval query.
	ErrEmptyQuery = errors.New("empty query")
)

// EntryType tags an entry by kind.
type EntryType string

const (
	TypeTask     EntryType = "task"
	TypeDecision EntryType = "decision"
	TypeCode     EntryType = "code"
	TypeError    EntryType = "error"
	TypeContext  EntryType = "context"
)

// Entry is a unit of retrievable context. Entries are immutable except
// through Update, which also refreshes Timestamp.
type Entry struct {
	ID        string         `json:"id"`
	Type      EntryType      `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SearchResult is an entry with its retrieval score. Higher is more
// relevant; the scale depends on the backend.
type SearchResult struct {
	Entry
	Score float32 `json:"score"`
}

// Patch carries the fields an Update call may change. Nil fields are left
// untouched.
type Patch struct {
	Type     *EntryType
	Content  *string
	Metadata map[string]any
}

// Stats summarizes the store's contents.
type Stats struct {
	TotalEntries  int               `json:"total_entries"`
	EntriesByType map[EntryType]int `json:"entries_by_type"`
	OldestEntry   *time.Time        `json:"oldest_entry,omitempty"`
	NewestEntry   *time.Time        `json:"newest_entry,omitempty"`
	Backend       string            `json:"backend"`
}

// Embedder generates vector embeddings from text. The AI gateway's
// embedding service implements this.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the memory contract shared by both backends.
type Store interface {
	// Store persists an entry and returns its id. A missing id or timestamp
	// is assigned.
	Store(ctx context.Context, entry Entry) (string, error)

	// Retrieve returns up to limit entries ranked by relevance to the
	// query, best first.
	Retrieve(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Update applies a patch to an entry and refreshes its timestamp.
	// Returns false when the id is unknown.
	Update(ctx context.Context, id string, patch Patch) (bool, error)

	// Delete removes an entry. Returns false when the id is unknown.
	Delete(ctx context.Context, id string) (bool, error)

	// GetByType returns up to limit entries of one type, newest first.
	GetByType(ctx context.Context, t EntryType, limit int) ([]Entry, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Stats summarizes the store.
	Stats(ctx context.Context) (Stats, error)
}
