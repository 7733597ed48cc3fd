// Package ai provides the multi-provider generative-text gateway.
//
// The gateway selects a model per request from a static catalog (task type
// picks the candidate list, complexity tier picks the position in it),
// issues the completion through langchaingo, tracks token usage and cost,
// and retries once against the default model when the selected model fails.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("taskmated.ai")

// Sentinel errors for the gateway.
var (
	// ErrUnknownModel is returned when a requested model is not in the catalog.
	ErrUnknownModel = errors.New("unknown model")

	// ErrProviderUnavailable is returned when no client could be built for a
	// model's provider (missing credentials or AI disabled).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmptyPrompt indicates an empty prompt.
	ErrEmptyPrompt = errors.New("empty prompt")
)

// Complexity is the request complexity tier driving model selection.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Request is a single completion request. Requests are ephemeral and never
// persisted.
type Request struct {
	// Prompt is the full prompt text.
	Prompt string

	// TaskType tags the request for model selection (planning,
	// code-generation, debugging, analysis, documentation, testing).
	TaskType string

	// Complexity selects a position in the candidate model list.
	Complexity Complexity

	// Model, when set, overrides selection entirely.
	Model string

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int

	// TaskID attributes usage to a task in the cost ledger. Optional.
	TaskID string
}

// Response is the outcome of a completion request.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Model        string
	Provider     string
}

// Gateway issues completion requests against the configured providers.
type Gateway struct {
	clients      *clientSet
	usage        *Usage
	defaultModel string
	logger       *zap.Logger
}

// Config holds gateway construction settings.
type Config struct {
	OpenAIKey    string
	AnthropicKey string
	GoogleKey    string

	// DefaultModel overrides the catalog default fallback model.
	DefaultModel string
}

// New creates a gateway. No provider connection is made until the first
// request that needs it; providers without credentials surface
// ErrProviderUnavailable at call time.
func New(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	return &Gateway{
		clients:      newClientSet(cfg),
		usage:        NewUsage(),
		defaultModel: defaultModel,
		logger:       logger.Named("ai"),
	}
}

// Usage returns the gateway's cumulative usage ledger.
func (g *Gateway) Usage() *Usage {
	return g.usage
}

// Available reports whether at least one provider has credentials.
func (g *Gateway) Available() bool {
	return g.clients.available()
}

// Generate resolves a model for the request, issues the completion, and
// accounts tokens and cost. When the selected model fails and is not the
// default model, the default model is tried once before the failure is
// surfaced.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Generate")
	defer span.End()

	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	model := req.Model
	if model == "" {
		model = SelectModel(req.TaskType, req.Complexity)
	}
	if _, ok := Catalog[model]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	span.SetAttributes(
		attribute.String("model", model),
		attribute.String("task_type", req.TaskType),
		attribute.String("complexity", string(req.Complexity)),
	)

	resp, err := g.call(ctx, model, req)
	if err != nil && model != g.defaultModel {
		g.logger.Warn("model call failed, falling back to default model",
			zap.String("model", model),
			zap.String("default_model", g.defaultModel),
			zap.Error(err))
		resp, err = g.call(ctx, g.defaultModel, req)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	g.usage.Record(req.TaskID, resp.Model, resp.InputTokens, resp.OutputTokens, resp.Cost)
	recordMetrics(resp)

	span.SetAttributes(
		attribute.Int("input_tokens", resp.InputTokens),
		attribute.Int("output_tokens", resp.OutputTokens),
	)
	span.SetStatus(codes.Ok, "success")
	return resp, nil
}

// call issues one completion against a specific catalog model.
func (g *Gateway) call(ctx context.Context, model string, req Request) (*Response, error) {
	info, ok := Catalog[model]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	llm, err := g.clients.forProvider(ctx, info.Provider)
	if err != nil {
		return nil, err
	}

	opts := []llms.CallOption{llms.WithModel(info.ID)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	result, err := llm.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt)},
		opts...)
	if err != nil {
		return nil, fmt.Errorf("generating with %s: %w", model, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("generating with %s: empty response", model)
	}

	choice := result.Choices[0]
	inputTokens, outputTokens := tokenCounts(choice.GenerationInfo, req.Prompt, choice.Content)

	return &Response{
		Content:      choice.Content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         CalculateCost(model, inputTokens, outputTokens),
		Model:        model,
		Provider:     info.Provider,
	}, nil
}

// tokenCounts pulls token usage out of the provider's generation info.
// Providers report under different keys; when none are present the counts
// are estimated at four characters per token.
func tokenCounts(info map[string]any, prompt, content string) (input, output int) {
	input = intFromInfo(info, "PromptTokens", "InputTokens", "prompt_tokens", "input_tokens")
	output = intFromInfo(info, "CompletionTokens", "OutputTokens", "completion_tokens", "output_tokens")
	if input == 0 {
		input = estimateTokens(prompt)
	}
	if output == 0 {
		output = estimateTokens(content)
	}
	return input, output
}

func intFromInfo(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

// estimateTokens approximates token count as ceil(len/4).
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}
