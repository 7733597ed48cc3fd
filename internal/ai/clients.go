package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// clientEntry holds a lazily-initialized provider client.
type clientEntry struct {
	key    string
	client llms.Model
	once   sync.Once
	err    error
}

// clientSet manages the per-provider langchaingo clients. Clients are built
// on first use so that a missing credential only matters for requests that
// would route to that provider.
type clientSet struct {
	entries map[string]*clientEntry
}

func newClientSet(cfg Config) *clientSet {
	entries := make(map[string]*clientEntry)
	if cfg.OpenAIKey != "" {
		entries["openai"] = &clientEntry{key: cfg.OpenAIKey}
	}
	if cfg.AnthropicKey != "" {
		entries["anthropic"] = &clientEntry{key: cfg.AnthropicKey}
	}
	if cfg.GoogleKey != "" {
		entries["google"] = &clientEntry{key: cfg.GoogleKey}
	}
	return &clientSet{entries: entries}
}

func (s *clientSet) available() bool {
	return len(s.entries) > 0
}

// forProvider returns the named provider's client, initializing it lazily.
func (s *clientSet) forProvider(ctx context.Context, provider string) (llms.Model, error) {
	entry, ok := s.entries[provider]
	if !ok {
		return nil, fmt.Errorf("%w: no credentials for %s", ErrProviderUnavailable, provider)
	}

	entry.once.Do(func() {
		entry.client, entry.err = buildClient(ctx, provider, entry.key)
	})
	if entry.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, entry.err)
	}
	return entry.client, nil
}

func buildClient(ctx context.Context, provider, key string) (llms.Model, error) {
	switch provider {
	case "openai":
		return openai.New(openai.WithToken(key))
	case "anthropic":
		return anthropic.New(anthropic.WithToken(key))
	case "google":
		return googleai.New(ctx, googleai.WithAPIKey(key))
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
