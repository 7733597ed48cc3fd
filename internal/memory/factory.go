package memory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FactoryConfig selects and configures the backend.
type FactoryConfig struct {
	// Vector enables the Qdrant backend when an embedder is also supplied.
	Vector *VectorConfig

	// MaxEntries bounds the in-process fallback store.
	MaxEntries int
}

// New builds the memory store. When a vector config and embedder are
// available it tries the Qdrant backend and wraps it with runtime
// degradation; any construction failure falls back to the in-process store
// transparently. Construction is never fatal.
func New(ctx context.Context, cfg FactoryConfig, embedder Embedder, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback := NewListStore(cfg.MaxEntries)

	if cfg.Vector == nil || embedder == nil {
		logger.Info("memory: vector backend not configured, using in-process store")
		return NewResilientStore(nil, fallback, logger)
	}

	primary, err := NewVectorStore(ctx, *cfg.Vector, embedder)
	if err != nil {
		logger.Warn("memory: vector backend unavailable, using in-process store",
			zap.Error(err))
		return NewResilientStore(nil, fallback, logger)
	}

	logger.Info("memory: vector backend ready",
		zap.String("collection", cfg.Vector.CollectionName))
	return NewResilientStore(primary, fallback, logger)
}

// AddTaskContext stores a task lifecycle note linked to a task.
func AddTaskContext(ctx context.Context, s Store, taskID, content string, metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	metadata["taskId"] = taskID
	return s.Store(ctx, Entry{
		Type:      TypeTask,
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
}

// AddDecision stores a decision with its rationale.
func AddDecision(ctx context.Context, s Store, decision, rationale string, metadata map[string]any) (string, error) {
	return s.Store(ctx, Entry{
		Type:      TypeDecision,
		Content:   fmt.Sprintf("%s: %s", decision, rationale),
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
}

// AddError stores an error observation linked to a task.
func AddError(ctx context.Context, s Store, taskID, content string) (string, error) {
	return s.Store(ctx, Entry{
		Type:      TypeError,
		Content:   content,
		Metadata:  map[string]any{"taskId": taskID},
		Timestamp: time.Now(),
	})
}
