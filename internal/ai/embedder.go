package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyInput indicates empty or nil input texts.
var ErrEmptyInput = errors.New("empty or nil input texts")

// EmbedderConfig holds configuration for the embedding service.
type EmbedderConfig struct {
	// BaseURL is the OpenAI-compatible embedding endpoint.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey authenticates against the endpoint.
	APIKey string
}

// Validate validates the configuration.
func (c EmbedderConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("embedder: base URL required")
	}
	if c.Model == "" {
		return errors.New("embedder: model required")
	}
	if c.APIKey == "" {
		return errors.New("embedder: API key required")
	}
	return nil
}

// Embedder generates vector embeddings via an OpenAI-compatible API.
// It satisfies the memory subsystem's embedding contract.
type Embedder struct {
	embedder *embeddings.EmbedderImpl
	config   EmbedderConfig
}

// NewEmbedder creates an embedding service over langchaingo's embeddings
// abstraction. Any OpenAI-compatible endpoint works (OpenAI itself or a
// local TEI server).
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Embedder{embedder: embedder, config: cfg}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}
