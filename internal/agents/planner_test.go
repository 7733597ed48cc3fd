package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/ai"
)

// stubGen is a scripted Generator shared by the agent tests.
type stubGen struct {
	content string
	err     error
	offline bool
	lastReq ai.Request
	calls   int
}

func (s *stubGen) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Response{Content: s.content, Model: "gemini-pro", Provider: "google"}, nil
}

func (s *stubGen) Available() bool { return !s.offline }

func TestFallbackPlan(t *testing.T) {
	plan := FallbackPlan("add caching")

	require.Len(t, plan.Tasks, 5)
	assert.Equal(t, "Fallback plan for: add caching", plan.Summary)

	agentsInOrder := []string{"planner", "planner", "coder", "debugger", "pm"}
	typesInOrder := []string{"analysis", "planning", "implementation", "testing", "documentation"}
	for i, task := range plan.Tasks {
		assert.Equal(t, agentsInOrder[i], task.Agent, "task %d", i)
		assert.Equal(t, typesInOrder[i], task.Metadata["type"], "task %d", i)
		assert.NotEmpty(t, task.Title)
	}
	assert.Contains(t, plan.Tasks[0].Description, "add caching")
}

func TestPlanParsesModelOutput(t *testing.T) {
	gen := &stubGen{content: `Here is my plan:
{"summary": "two step plan", "tasks": [
  {"title": "Design schema", "description": "draft it", "agent": "planner", "metadata": {"type": "planning"}},
  {"title": "Write code", "description": "do it", "agent": "coder"}
]}`}
	p := NewPlanner(gen, zap.NewNop())

	plan := p.Plan(context.Background(), "build a thing", nil)
	assert.Equal(t, "two step plan", plan.Summary)
	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, "planner", plan.Tasks[0].Agent)
	assert.Equal(t, "planning", string(plan.Tasks[0].Metadata["type"].(string)))
	assert.Equal(t, "planning", gen.lastReq.TaskType)
}

func TestPlanIncludesContextHints(t *testing.T) {
	gen := &stubGen{content: `{"summary": "s", "tasks": [{"title": "t", "description": "d", "agent": "coder"}]}`}
	p := NewPlanner(gen, zap.NewNop())

	hints := []ContextHint{{Content: "we already use redis", Score: 0.91}}
	p.Plan(context.Background(), "add caching", hints)
	assert.Contains(t, gen.lastReq.Prompt, "we already use redis")
	assert.Contains(t, gen.lastReq.Prompt, "RELEVANT CONTEXT FROM PREVIOUS WORK")
}

func TestPlanFallsBackOnErrors(t *testing.T) {
	t.Run("nil generator", func(t *testing.T) {
		plan := NewPlanner(nil, nil).Plan(context.Background(), "p", nil)
		assert.Len(t, plan.Tasks, 5)
	})

	t.Run("generator offline", func(t *testing.T) {
		gen := &stubGen{offline: true}
		plan := NewPlanner(gen, nil).Plan(context.Background(), "p", nil)
		assert.Len(t, plan.Tasks, 5)
		assert.Zero(t, gen.calls)
	})

	t.Run("generation error", func(t *testing.T) {
		plan := NewPlanner(&stubGen{err: errors.New("boom")}, nil).Plan(context.Background(), "p", nil)
		assert.Len(t, plan.Tasks, 5)
	})

	t.Run("unparseable output", func(t *testing.T) {
		plan := NewPlanner(&stubGen{content: "I cannot plan this."}, nil).Plan(context.Background(), "p", nil)
		assert.Len(t, plan.Tasks, 5)
	})

	t.Run("empty task list", func(t *testing.T) {
		plan := NewPlanner(&stubGen{content: `{"summary": "s", "tasks": []}`}, nil).Plan(context.Background(), "p", nil)
		assert.Len(t, plan.Tasks, 5)
	})

	t.Run("descriptor missing agent", func(t *testing.T) {
		plan := NewPlanner(&stubGen{content: `{"tasks": [{"title": "t", "description": "d"}]}`}, nil).Plan(context.Background(), "p", nil)
		assert.Len(t, plan.Tasks, 5)
	})
}

func TestAnalyze(t *testing.T) {
	gen := &stubGen{content: "  Looks feasible.  "}
	p := NewPlanner(gen, zap.NewNop())

	summary, err := p.Analyze(context.Background(), TaskInfo{ID: "t1", Title: "Analyze Requirements", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "Looks feasible.", summary)
	assert.Equal(t, "analysis", gen.lastReq.TaskType)
	assert.Equal(t, "t1", gen.lastReq.TaskID)

	// Offline analysis still yields a summary.
	summary, err = NewPlanner(nil, nil).Analyze(context.Background(), TaskInfo{Title: "X"})
	require.NoError(t, err)
	assert.Equal(t, "Completed analysis for: X", summary)
}

func TestPlannerStatus(t *testing.T) {
	status := NewPlanner(&stubGen{}, nil).Status()
	assert.Equal(t, "Planner Agent", status.Name)
	assert.Equal(t, "ready", status.Status)
	assert.True(t, status.AIEnabled)
	assert.Contains(t, status.Capabilities, "task_planning")

	assert.False(t, NewPlanner(nil, nil).Status().AIEnabled)
}
