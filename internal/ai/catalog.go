package ai

// TokenRate is the per-token price for one direction of a model call.
type TokenRate struct {
	Input  float64
	Output float64
}

// ModelInfo describes one provider/model pair in the static catalog.
type ModelInfo struct {
	// ID is the model identifier sent to the provider.
	ID string

	// Provider is the owning provider key: google, openai or anthropic.
	Provider string

	// Name is the human-readable model name.
	Name string

	// CostPerToken is the fixed per-token rate used for cost accounting.
	CostPerToken TokenRate

	// MaxTokens is the model's output token ceiling.
	MaxTokens int

	// Capabilities lists what the model is good at, for status reporting.
	Capabilities []string
}

// DefaultModel is retried against when a selected model call fails.
const DefaultModel = "gemini-pro"

// Catalog is the static model table. Rates are USD per token.
var Catalog = map[string]ModelInfo{
	"gemini-pro": {
		ID:           "gemini-pro",
		Provider:     "google",
		Name:         "Google Gemini Pro",
		CostPerToken: TokenRate{Input: 0.000125, Output: 0.000375},
		MaxTokens:    30720,
		Capabilities: []string{"text-generation", "code-generation", "analysis"},
	},
	"gpt-4": {
		ID:           "gpt-4",
		Provider:     "openai",
		Name:         "OpenAI GPT-4",
		CostPerToken: TokenRate{Input: 0.03, Output: 0.06},
		MaxTokens:    8192,
		Capabilities: []string{"text-generation", "code-generation", "reasoning"},
	},
	"gpt-4-turbo": {
		ID:           "gpt-4-turbo",
		Provider:     "openai",
		Name:         "OpenAI GPT-4 Turbo",
		CostPerToken: TokenRate{Input: 0.01, Output: 0.03},
		MaxTokens:    128000,
		Capabilities: []string{"text-generation", "code-generation", "reasoning", "vision"},
	},
	"claude-3-opus": {
		ID:           "claude-3-opus",
		Provider:     "anthropic",
		Name:         "Anthropic Claude 3 Opus",
		CostPerToken: TokenRate{Input: 0.015, Output: 0.075},
		MaxTokens:    200000,
		Capabilities: []string{"text-generation", "code-generation", "analysis", "reasoning"},
	},
	"claude-3-sonnet": {
		ID:           "claude-3-sonnet",
		Provider:     "anthropic",
		Name:         "Anthropic Claude 3 Sonnet",
		CostPerToken: TokenRate{Input: 0.003, Output: 0.015},
		MaxTokens:    200000,
		Capabilities: []string{"text-generation", "code-generation", "analysis"},
	},
}

// taskTypeModels maps a task type to its ordered candidate models, best
// first. Unknown task types fall through to the default model alone.
var taskTypeModels = map[string][]string{
	"planning":        {"gpt-4", "claude-3-opus", "gemini-pro"},
	"code-generation": {"gpt-4-turbo", "claude-3-sonnet", "gemini-pro"},
	"debugging":       {"gpt-4", "claude-3-sonnet", "gemini-pro"},
	"analysis":        {"claude-3-opus", "gpt-4", "gemini-pro"},
	"documentation":   {"claude-3-sonnet", "gpt-4-turbo", "gemini-pro"},
	"testing":         {"gpt-4", "claude-3-sonnet", "gemini-pro"},
}

// SelectModel picks a model for a task type and complexity tier.
// High complexity takes the best candidate, medium the second, low the
// third, each clamped to the candidate list's bounds.
func SelectModel(taskType string, complexity Complexity) string {
	candidates, ok := taskTypeModels[taskType]
	if !ok || len(candidates) == 0 {
		return DefaultModel
	}

	idx := 0
	switch complexity {
	case ComplexityHigh:
		idx = 0
	case ComplexityMedium:
		idx = 1
	case ComplexityLow:
		idx = 2
	}
	if idx >= len(candidates) {
		idx = len(candidates) - 1
	}
	return candidates[idx]
}

// CalculateCost computes the monetary cost of a call against the catalog
// rates. Unknown models cost zero.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	info, ok := Catalog[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)*info.CostPerToken.Input + float64(outputTokens)*info.CostPerToken.Output
}
