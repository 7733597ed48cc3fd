package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/ai"
)

// TaskDescriptor is one planned unit of work before the orchestrator
// materializes it into a task.
type TaskDescriptor struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Agent       string         `json:"agent"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PlanResult is the planner's output: an ordered task list plus a short
// summary of the approach.
type PlanResult struct {
	Summary string           `json:"summary"`
	Tasks   []TaskDescriptor `json:"tasks"`
}

// ContextHint is a prior memory entry surfaced to the planner.
type ContextHint struct {
	Content string
	Score   float32
}

// Planner decomposes a free-form problem statement into tasks routed to
// the other agents. When no generator is available, or the model output
// cannot be parsed, it emits a deterministic five-step plan instead.
type Planner struct {
	gen    Generator
	logger *zap.Logger
}

func NewPlanner(gen Generator, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{gen: gen, logger: logger}
}

// Plan produces a task breakdown for the problem. The returned plan is
// always non-empty; AI failures degrade to FallbackPlan rather than error,
// so there is no error return.
func (p *Planner) Plan(ctx context.Context, problem string, hints []ContextHint) *PlanResult {
	if p.gen == nil || !p.gen.Available() {
		return FallbackPlan(problem)
	}

	resp, err := p.gen.Generate(ctx, ai.Request{
		Prompt:     planPrompt(problem, hints),
		TaskType:   "planning",
		Complexity: ai.ComplexityHigh,
	})
	if err != nil {
		p.logger.Warn("planning generation failed, using fallback", zap.Error(err))
		return FallbackPlan(problem)
	}

	plan, ok := parsePlan(resp.Content)
	if !ok {
		p.logger.Warn("plan output unparseable, using fallback",
			zap.String("model", resp.Model))
		return FallbackPlan(problem)
	}
	return plan
}

func parsePlan(text string) (*PlanResult, bool) {
	blob, ok := ExtractJSON(text)
	if !ok {
		return nil, false
	}
	var plan PlanResult
	if err := json.Unmarshal([]byte(blob), &plan); err != nil {
		return nil, false
	}
	if len(plan.Tasks) == 0 {
		return nil, false
	}
	for i := range plan.Tasks {
		if plan.Tasks[i].Title == "" || plan.Tasks[i].Agent == "" {
			return nil, false
		}
	}
	if plan.Summary == "" {
		plan.Summary = "AI-generated task plan"
	}
	return &plan, true
}

func planPrompt(problem string, hints []ContextHint) string {
	var b strings.Builder
	fmt.Fprintf(&b, `As a senior software architect, break down this problem into specific, actionable tasks:

Problem: %q
`, problem)

	if len(hints) > 0 {
		b.WriteString("\nRELEVANT CONTEXT FROM PREVIOUS WORK:\n")
		for i, h := range hints {
			fmt.Fprintf(&b, "%d. %s (Score: %.2f)\n", i+1, h.Content, h.Score)
		}
		b.WriteString("\nUse this context to inform your planning decisions and avoid duplicating previous work.\n")
	}

	b.WriteString(`
Create a detailed plan with tasks that can be executed by different agents:
- planner: Analysis and planning tasks
- coder: Code generation and implementation
- debugger: Testing and debugging tasks
- pm: Communication and project management

Return a JSON response with this structure:
{
  "summary": "Brief summary of the plan",
  "tasks": [
    {
      "title": "Task title",
      "description": "Detailed description",
      "agent": "agent_name",
      "metadata": {}
    }
  ]
}

Make tasks specific and executable. Focus on practical implementation steps.`)
	return b.String()
}

// FallbackPlan is the deterministic five-step breakdown used when AI
// planning is unavailable or its output cannot be parsed.
func FallbackPlan(problem string) *PlanResult {
	return &PlanResult{
		Summary: fmt.Sprintf("Fallback plan for: %s", problem),
		Tasks: []TaskDescriptor{
			{
				Title:       "Analyze Requirements",
				Description: fmt.Sprintf("Analyze the problem: %q", problem),
				Agent:       "planner",
				Metadata:    map[string]any{"type": "analysis"},
			},
			{
				Title:       "Generate Implementation Plan",
				Description: "Create detailed implementation strategy",
				Agent:       "planner",
				Metadata:    map[string]any{"type": "planning"},
			},
			{
				Title:       "Implement Solution",
				Description: "Code the solution based on requirements",
				Agent:       "coder",
				Metadata:    map[string]any{"type": "implementation"},
			},
			{
				Title:       "Test and Debug",
				Description: "Test the implementation and fix issues",
				Agent:       "debugger",
				Metadata:    map[string]any{"type": "testing"},
			},
			{
				Title:       "Update Documentation",
				Description: "Document the changes and notify stakeholders",
				Agent:       "pm",
				Metadata:    map[string]any{"type": "documentation"},
			},
		},
	}
}

// Analyze handles tasks routed to the planner itself (analysis and
// planning steps inside an executing plan). It returns a textual summary.
func (p *Planner) Analyze(ctx context.Context, task TaskInfo) (string, error) {
	if p.gen == nil || !p.gen.Available() {
		return fmt.Sprintf("Completed analysis for: %s", task.Title), nil
	}
	resp, err := p.gen.Generate(ctx, ai.Request{
		Prompt: fmt.Sprintf(
			"Provide a concise analysis for the following task.\n\nTitle: %s\nDescription: %s\n\nRespond with a short paragraph of findings and recommendations.",
			task.Title, task.Description),
		TaskType:   "analysis",
		Complexity: ai.ComplexityMedium,
		TaskID:     task.ID,
	})
	if err != nil {
		p.logger.Warn("analysis generation failed, using static summary",
			zap.String("task_id", task.ID), zap.Error(err))
		return fmt.Sprintf("Completed analysis for: %s", task.Title), nil
	}
	return strings.TrimSpace(resp.Content), nil
}

// Status reports the planner's readiness and capabilities.
func (p *Planner) Status() Status {
	return Status{
		Name:         "Planner Agent",
		Status:       "ready",
		Capabilities: []string{"task_planning", "requirement_analysis"},
		AIEnabled:    p.gen != nil && p.gen.Available(),
	}
}
