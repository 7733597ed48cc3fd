package memory

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ResilientStore wraps a primary (vector) store with a local fallback.
// When a primary operation fails, the store degrades to the fallback for
// the rest of the process lifetime and logs the degradation; callers keep
// the same contract and never see the backend switch as an error.
type ResilientStore struct {
	primary  Store
	fallback Store
	logger   *zap.Logger

	mu       sync.RWMutex
	degraded bool
}

// NewResilientStore wraps primary with fallback. fallback must not be nil;
// a nil primary starts degraded.
func NewResilientStore(primary, fallback Store, logger *zap.Logger) *ResilientStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.Named("memory"),
		degraded: primary == nil,
	}
}

// Degraded reports whether the store has fallen back to the local backend.
func (s *ResilientStore) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// active returns the store operations should run against.
func (s *ResilientStore) active() Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.degraded {
		return s.fallback
	}
	return s.primary
}

// degrade switches to the fallback permanently.
func (s *ResilientStore) degrade(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.degraded = true
	s.logger.Warn("vector backend failed, degrading to in-process store",
		zap.String("operation", op),
		zap.Error(err))
}

func (s *ResilientStore) Store(ctx context.Context, entry Entry) (string, error) {
	id, err := s.active().Store(ctx, entry)
	if err != nil && !s.Degraded() && !isContractError(err) {
		s.degrade("store", err)
		return s.fallback.Store(ctx, entry)
	}
	return id, err
}

func (s *ResilientStore) Retrieve(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	results, err := s.active().Retrieve(ctx, query, limit)
	if err != nil && !s.Degraded() && !isContractError(err) {
		s.degrade("retrieve", err)
		return s.fallback.Retrieve(ctx, query, limit)
	}
	return results, err
}

func (s *ResilientStore) Update(ctx context.Context, id string, patch Patch) (bool, error) {
	ok, err := s.active().Update(ctx, id, patch)
	if err != nil && !s.Degraded() && !isContractError(err) {
		s.degrade("update", err)
		return s.fallback.Update(ctx, id, patch)
	}
	return ok, err
}

func (s *ResilientStore) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.active().Delete(ctx, id)
	if err != nil && !s.Degraded() && !isContractError(err) {
		s.degrade("delete", err)
		return s.fallback.Delete(ctx, id)
	}
	return ok, err
}

func (s *ResilientStore) GetByType(ctx context.Context, t EntryType, limit int) ([]Entry, error) {
	entries, err := s.active().GetByType(ctx, t, limit)
	if err != nil && !s.Degraded() && !isContractError(err) {
		s.degrade("get_by_type", err)
		return s.fallback.GetByType(ctx, t, limit)
	}
	return entries, err
}

func (s *ResilientStore) Clear(ctx context.Context) error {
	err := s.active().Clear(ctx)
	if err != nil && !s.Degraded() {
		s.degrade("clear", err)
		return s.fallback.Clear(ctx)
	}
	return err
}

func (s *ResilientStore) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.active().Stats(ctx)
	if err != nil && !s.Degraded() {
		s.degrade("stats", err)
		return s.fallback.Stats(ctx)
	}
	return stats, err
}

// isContractError reports whether an error is the caller's fault rather
// than a backend failure. Contract errors never trigger degradation.
func isContractError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrEntryNotFound):
		return true
	default:
		return false
	}
}
