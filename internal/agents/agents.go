// Package agents implements the four task executors: planner, coder,
// debugger and project manager.
//
// Each executor consults the AI gateway for content and degrades to a
// deterministic fallback when the gateway is unavailable or its output is
// unparseable. AI output is treated as adversarial: structured results go
// through a three-tier parse cascade (strict format, loose JSON, per-field
// extraction) before the fallback is used.
package agents

import (
	"context"

	"github.com/fyrsmithlabs/taskmated/internal/ai"
)

// Generator is the slice of the AI gateway the agents consume.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (*ai.Response, error)
	Available() bool
}

// Status describes one agent's readiness for the status endpoint.
type Status struct {
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Capabilities  []string `json:"capabilities"`
	AIEnabled     bool     `json:"ai_enabled"`
	GitHubEnabled bool     `json:"github_enabled,omitempty"`
	SlackEnabled  bool     `json:"slack_enabled,omitempty"`
}

// TaskInfo is the task view the executors operate on. The orchestrator owns
// the full task record; agents only need these fields.
type TaskInfo struct {
	ID          string
	Title       string
	Description string
	Status      string
	Logs        []string

	// TypeHint is the task-type tag from the plan metadata (analysis,
	// implementation, testing, ...). Drives templates and model selection.
	TypeHint string
}
