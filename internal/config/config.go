// Package config provides configuration loading for taskmated.
//
// Configuration is loaded from environment variables with sensible defaults.
// Feature flags gate each external collaborator: when a flag is off (or the
// collaborator's credentials are missing) the corresponding component runs on
// its deterministic fallback path instead.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete taskmated configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Features FeatureConfig  `koanf:"features"`
	AI       AIConfig       `koanf:"ai"`
	Qdrant   QdrantConfig   `koanf:"qdrant"`
	GitHub   GitHubConfig   `koanf:"github"`
	Slack    SlackConfig    `koanf:"slack"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int    `koanf:"port"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

// FeatureConfig gates the optional collaborators. All default to true;
// a collaborator is only actually used when its credentials are also set.
type FeatureConfig struct {
	EnableAI     bool `koanf:"enable_ai"`
	EnableGitHub bool `koanf:"enable_github"`
	EnableSlack  bool `koanf:"enable_slack"`
	EnableMemory bool `koanf:"enable_memory"`
}

// AIConfig holds generative-text provider credentials and defaults.
type AIConfig struct {
	OpenAIKey    string `koanf:"openai_key"`
	AnthropicKey string `koanf:"anthropic_key"`
	GoogleKey    string `koanf:"google_key"`

	// DefaultModel is the model retried against when the selected model
	// fails. Default: gemini-pro.
	DefaultModel string `koanf:"default_model"`

	// EmbeddingBaseURL is the OpenAI-compatible embedding endpoint.
	// Default: https://api.openai.com/v1.
	EmbeddingBaseURL string `koanf:"embedding_base_url"`

	// EmbeddingModel is the embedding model name.
	// Default: text-embedding-3-small (1536 dimensions).
	EmbeddingModel string `koanf:"embedding_model"`
}

// QdrantConfig holds the vector index connection settings.
type QdrantConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	CollectionName string `koanf:"collection_name"`
	VectorSize     int    `koanf:"vector_size"`
	UseTLS         bool   `koanf:"use_tls"`
}

// GitHubConfig holds the code-hosting collaborator settings.
type GitHubConfig struct {
	Token      string `koanf:"token"`
	Owner      string `koanf:"owner"`
	Repo       string `koanf:"repo"`
	BaseBranch string `koanf:"base_branch"`
}

// SlackConfig holds the messaging collaborator settings.
type SlackConfig struct {
	WebhookURL string `koanf:"webhook_url"`
	Username   string `koanf:"username"`
	IconEmoji  string `koanf:"icon_emoji"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AIConfigured reports whether at least one generative-text provider has
// credentials and the AI feature flag is on.
func (c *Config) AIConfigured() bool {
	if !c.Features.EnableAI {
		return false
	}
	return c.AI.OpenAIKey != "" || c.AI.AnthropicKey != "" || c.AI.GoogleKey != ""
}

// GitHubConfigured reports whether the code-hosting collaborator is usable.
func (c *Config) GitHubConfigured() bool {
	return c.Features.EnableGitHub && c.GitHub.Token != "" && c.GitHub.Owner != "" && c.GitHub.Repo != ""
}

// SlackConfigured reports whether the messaging collaborator is usable.
func (c *Config) SlackConfigured() bool {
	return c.Features.EnableSlack && c.Slack.WebhookURL != ""
}

// QdrantConfigured reports whether the vector index is reachable by config.
// The memory subsystem also needs an embedding-capable AI provider; see
// memory.New for the full availability decision.
func (c *Config) QdrantConfigured() bool {
	return c.Features.EnableMemory && c.Qdrant.Host != ""
}

// Load loads configuration from environment variables with defaults.
//
// Environment variables use the TASKMATE_ prefix with underscore-separated
// section and field names:
//
//	TASKMATE_SERVER_PORT=8090
//	TASKMATE_FEATURES_ENABLE_AI=false
//	TASKMATE_AI_OPENAI_KEY=sk-...
//	TASKMATE_QDRANT_HOST=localhost
//	TASKMATE_GITHUB_TOKEN=ghp_...
//	TASKMATE_SLACK_WEBHOOK_URL=https://hooks.slack.com/...
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("TASKMATE_", ".", func(s string) string {
		// TASKMATE_QDRANT_COLLECTION_NAME -> qdrant.collection_name
		// Strategy: split on the first underscore only; the leading part is
		// the section, the rest keeps its underscores as the field name.
		lower := strings.ToLower(strings.TrimPrefix(s, "TASKMATE_"))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg, k)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills unset fields. Boolean feature flags default to true,
// so they are only forced off when the variable was set explicitly.
func applyDefaults(cfg *Config, k *koanf.Koanf) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.ShutdownTimeout == "" {
		cfg.Server.ShutdownTimeout = "10s"
	}

	if !k.Exists("features.enable_ai") {
		cfg.Features.EnableAI = true
	}
	if !k.Exists("features.enable_github") {
		cfg.Features.EnableGitHub = true
	}
	if !k.Exists("features.enable_slack") {
		cfg.Features.EnableSlack = true
	}
	if !k.Exists("features.enable_memory") {
		cfg.Features.EnableMemory = true
	}

	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gemini-pro"
	}
	if cfg.AI.EmbeddingBaseURL == "" {
		cfg.AI.EmbeddingBaseURL = "https://api.openai.com/v1"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}

	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.CollectionName == "" {
		cfg.Qdrant.CollectionName = "taskmate_memory"
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 1536
	}

	if cfg.GitHub.BaseBranch == "" {
		cfg.GitHub.BaseBranch = "main"
	}

	if cfg.Slack.Username == "" {
		cfg.Slack.Username = "TaskMate Bot"
	}
	if cfg.Slack.IconEmoji == "" {
		cfg.Slack.IconEmoji = ":robot_face:"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port: %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("%w: invalid qdrant port: %d", ErrInvalidConfig, c.Qdrant.Port)
	}
	if c.Qdrant.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
