package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultMaxEntries bounds the in-process store; oldest entries are evicted
// past this capacity.
const defaultMaxEntries = 1000

// ListStore is the in-process fallback backend: a bounded list searched by
// bag-of-words overlap between query and content, ranked descending with
// ties broken by recency. Safe for concurrent use.
type ListStore struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
}

// NewListStore creates a fallback store. maxEntries <= 0 uses the default
// capacity of 1000.
func NewListStore(maxEntries int) *ListStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &ListStore{maxEntries: maxEntries}
}

// Store appends an entry, evicting the oldest when over capacity.
func (s *ListStore) Store(_ context.Context, entry Entry) (string, error) {
	if entry.Content == "" {
		return "", ErrEmptyContent
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[len(s.entries)-s.maxEntries:]
	}
	return entry.ID, nil
}

// Retrieve ranks entries by word overlap with the query.
func (s *ListStore) Retrieve(_ context.Context, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult
	for _, entry := range s.entries {
		score := overlapScore(entry.Content, query)
		if score == 0 && !tagsMatch(entry.Metadata, query) {
			continue
		}
		results = append(results, SearchResult{Entry: entry, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Update applies a patch in place and refreshes the timestamp.
func (s *ListStore) Update(_ context.Context, id string, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		if patch.Type != nil {
			s.entries[i].Type = *patch.Type
		}
		if patch.Content != nil {
			s.entries[i].Content = *patch.Content
		}
		if patch.Metadata != nil {
			s.entries[i].Metadata = patch.Metadata
		}
		s.entries[i].Timestamp = time.Now()
		return true, nil
	}
	return false, nil
}

// Delete removes an entry by id.
func (s *ListStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// GetByType returns entries of one type, newest first.
func (s *ListStore) GetByType(_ context.Context, t EntryType, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Entry
	for _, entry := range s.entries {
		if entry.Type == t {
			matches = append(matches, entry)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Timestamp.After(matches[j].Timestamp)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Clear removes all entries.
func (s *ListStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// Stats summarizes the store.
func (s *ListStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalEntries:  len(s.entries),
		EntriesByType: make(map[EntryType]int),
		Backend:       "list",
	}
	for _, entry := range s.entries {
		stats.EntriesByType[entry.Type]++
		ts := entry.Timestamp
		if stats.OldestEntry == nil || ts.Before(*stats.OldestEntry) {
			t := ts
			stats.OldestEntry = &t
		}
		if stats.NewestEntry == nil || ts.After(*stats.NewestEntry) {
			t := ts
			stats.NewestEntry = &t
		}
	}
	return stats, nil
}

// overlapScore computes the share of words common to text and query,
// normalized by the longer word list.
func overlapScore(text, query string) float32 {
	textWords := strings.Fields(strings.ToLower(text))
	queryWords := strings.Fields(strings.ToLower(query))
	if len(textWords) == 0 || len(queryWords) == 0 {
		return 0
	}

	querySet := make(map[string]struct{}, len(queryWords))
	for _, w := range queryWords {
		querySet[w] = struct{}{}
	}

	common := 0
	for _, w := range textWords {
		if _, ok := querySet[w]; ok {
			common++
		}
	}

	longer := len(textWords)
	if len(queryWords) > longer {
		longer = len(queryWords)
	}
	return float32(common) / float32(longer)
}

// tagsMatch reports whether any metadata tag contains the query substring.
func tagsMatch(metadata map[string]any, query string) bool {
	tags, ok := metadata["tags"].([]string)
	if !ok {
		return false
	}
	q := strings.ToLower(query)
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
