package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore errors on every operation.
type failingStore struct {
	err error
}

func (f *failingStore) Store(context.Context, Entry) (string, error)          { return "", f.err }
func (f *failingStore) Retrieve(context.Context, string, int) ([]SearchResult, error) {
	return nil, f.err
}
func (f *failingStore) Update(context.Context, string, Patch) (bool, error) { return false, f.err }
func (f *failingStore) Delete(context.Context, string) (bool, error)        { return false, f.err }
func (f *failingStore) GetByType(context.Context, EntryType, int) ([]Entry, error) {
	return nil, f.err
}
func (f *failingStore) Clear(context.Context) error         { return f.err }
func (f *failingStore) Stats(context.Context) (Stats, error) { return Stats{}, f.err }

func TestResilientDegradesOnBackendFailure(t *testing.T) {
	primary := &failingStore{err: errors.New("connection refused")}
	fallback := NewListStore(0)
	s := NewResilientStore(primary, fallback, nil)
	ctx := context.Background()

	assert.False(t, s.Degraded())

	// The failing write degrades and is replayed against the fallback.
	id, err := s.Store(ctx, Entry{Type: TypeTask, Content: "resilient entry"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.True(t, s.Degraded())

	// Subsequent operations hit the fallback directly.
	results, err := s.Retrieve(ctx, "resilient", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "list", stats.Backend)
}

func TestResilientContractErrorsDoNotDegrade(t *testing.T) {
	primary := NewListStore(0)
	s := NewResilientStore(primary, NewListStore(0), nil)
	ctx := context.Background()

	_, err := s.Store(ctx, Entry{})
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.False(t, s.Degraded())

	_, err = s.Retrieve(ctx, "", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.False(t, s.Degraded())
}

func TestResilientNilPrimaryStartsDegraded(t *testing.T) {
	s := NewResilientStore(nil, NewListStore(0), nil)
	assert.True(t, s.Degraded())

	id, err := s.Store(context.Background(), Entry{Content: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestResilientHealthyPrimaryIsUsed(t *testing.T) {
	primary := NewListStore(0)
	fallback := NewListStore(0)
	s := NewResilientStore(primary, fallback, nil)
	ctx := context.Background()

	_, err := s.Store(ctx, Entry{Content: "primary entry"})
	require.NoError(t, err)
	assert.False(t, s.Degraded())

	primaryStats, err := primary.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, primaryStats.TotalEntries)

	fallbackStats, err := fallback.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, fallbackStats.TotalEntries)
}

func TestFactoryHelpers(t *testing.T) {
	s := NewListStore(0)
	ctx := context.Background()

	_, err := AddTaskContext(ctx, s, "t1", "Task created: build widget", nil)
	require.NoError(t, err)
	_, err = AddDecision(ctx, s, "use qdrant", "vector search needed", nil)
	require.NoError(t, err)
	_, err = AddError(ctx, s, "t1", "task failed: timeout")
	require.NoError(t, err)

	tasks, err := s.GetByType(ctx, TypeTask, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].Metadata["taskId"])

	decisions, err := s.GetByType(ctx, TypeDecision, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Contains(t, decisions[0].Content, "use qdrant")
	assert.Contains(t, decisions[0].Content, "vector search needed")

	errs, err := s.GetByType(ctx, TypeError, 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
}
