package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/agents"
	"github.com/fyrsmithlabs/taskmated/internal/memory"
)

// newTestOrchestrator wires fallback-only agents (no AI, no GitHub, no
// Slack) over an in-process memory store.
func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := zap.NewNop()
	set := AgentSet{
		Planner:   agents.NewPlanner(nil, logger),
		Coder:     agents.NewCoder(nil, nil, logger),
		Debugger:  agents.NewDebugger(nil, logger),
		ProjectMg: agents.NewProjectManager(nil, logger),
	}
	return New(Config{EnableMemory: true}, set, memory.NewListStore(0), logger)
}

// waitForStatus polls until every task settles out of queued/in_progress.
func waitForStatus(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		done := true
		for _, task := range o.GetAllTasks() {
			if task.Status == StatusQueued || task.Status == StatusInProgress {
				done = false
				break
			}
		}
		if done && len(o.GetAllTasks()) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("tasks did not settle in time")
}

func TestCreateTaskFromProblemRunsFullPlan(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	firstID, err := o.CreateTaskFromProblem(ctx, "Add a /health endpoint")
	require.NoError(t, err)
	require.NotEmpty(t, firstID)

	waitForStatus(t, o)

	tasks := o.GetAllTasks()
	require.Len(t, tasks, 5)

	byAgent := map[string]int{}
	for _, task := range tasks {
		assert.Equal(t, StatusDone, task.Status, "task %s (%s)", task.Title, task.Agent)
		require.NotNil(t, task.Result, "task %s missing result", task.Title)
		byAgent[task.Agent]++
		assert.Contains(t, task.Logs[0], "Add a /health endpoint")
		assert.Contains(t, task.Logs[len(task.Logs)-1], "completed successfully")
	}
	assert.Equal(t, 2, byAgent["planner"])
	assert.Equal(t, 1, byAgent["coder"])
	assert.Equal(t, 1, byAgent["debugger"])
	assert.Equal(t, 1, byAgent["pm"])

	// The returned id is one of the created tasks.
	_, err = o.GetTask(firstID)
	require.NoError(t, err)

	// Results carry the right payload kind per agent.
	for _, task := range tasks {
		switch agents.ParseKind(task.Agent) {
		case agents.KindPlanner:
			assert.Equal(t, ResultAnalysis, task.Result.Kind)
			assert.NotEmpty(t, task.Result.Analysis)
		case agents.KindCoder:
			assert.Equal(t, ResultCode, task.Result.Kind)
			require.NotNil(t, task.Result.Code)
			assert.NotEmpty(t, task.Result.Code.Filename)
		case agents.KindDebugger:
			assert.Equal(t, ResultDebug, task.Result.Kind)
			require.NotNil(t, task.Result.Debug)
		case agents.KindProjectManager:
			assert.Equal(t, ResultPM, task.Result.Kind)
			assert.NotEmpty(t, task.Result.PM)
		}
	}
}

func TestCreateTaskFromProblemValidation(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.CreateTaskFromProblem(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyProblem)
}

func TestExecuteTaskUnknownID(t *testing.T) {
	o := newTestOrchestrator(t)
	err := o.ExecuteTask(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRetryTask(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	task := &Task{
		ID:          "failed-1",
		Title:       "Implement Solution",
		Description: "broken",
		Status:      StatusFailed,
		Agent:       "coder",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Logs:        []string{"Task failed: provider exploded"},
	}
	o.store.Create(task)

	require.NoError(t, o.RetryTask(ctx, "failed-1"))

	got, err := o.GetTask("failed-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	assert.Contains(t, got.Logs, "Task retry initiated")
	require.NotNil(t, got.Result)
	assert.Equal(t, ResultCode, got.Result.Kind)
}

func TestRetryTaskPreconditions(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	assert.ErrorIs(t, o.RetryTask(ctx, "missing"), ErrTaskNotFound)

	o.store.Create(&Task{ID: "done-1", Status: StatusDone, Agent: "coder", CreatedAt: time.Now()})
	assert.ErrorIs(t, o.RetryTask(ctx, "done-1"), ErrNotRetryable)

	o.store.Create(&Task{ID: "queued-1", Status: StatusQueued, Agent: "coder", CreatedAt: time.Now()})
	assert.ErrorIs(t, o.RetryTask(ctx, "queued-1"), ErrNotRetryable)
}

func TestRetryAllFailed(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	o.store.Create(&Task{ID: "f1", Title: "A", Status: StatusFailed, Agent: "coder", CreatedAt: time.Now()})
	o.store.Create(&Task{ID: "f2", Title: "B", Status: StatusFailed, Agent: "debugger", CreatedAt: time.Now()})
	o.store.Create(&Task{ID: "d1", Title: "C", Status: StatusDone, Agent: "pm", CreatedAt: time.Now()})

	assert.Equal(t, 2, o.RetryAllFailed(ctx))

	for _, id := range []string{"f1", "f2"} {
		task, err := o.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, StatusDone, task.Status)
	}
}

func TestClearCompleted(t *testing.T) {
	o := newTestOrchestrator(t)

	o.store.Create(&Task{ID: "d1", Status: StatusDone, CreatedAt: time.Now()})
	o.store.Create(&Task{ID: "d2", Status: StatusDone, CreatedAt: time.Now()})
	o.store.Create(&Task{ID: "f1", Status: StatusFailed, CreatedAt: time.Now()})

	assert.Equal(t, 2, o.ClearCompleted())
	assert.Len(t, o.GetAllTasks(), 1)
	_, err := o.GetTask("d1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestGetAllTasksNewestFirst(t *testing.T) {
	o := newTestOrchestrator(t)
	base := time.Now()

	o.store.Create(&Task{ID: "old", CreatedAt: base.Add(-time.Hour)})
	o.store.Create(&Task{ID: "new", CreatedAt: base})
	o.store.Create(&Task{ID: "mid", CreatedAt: base.Add(-time.Minute)})

	tasks := o.GetAllTasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, "new", tasks[0].ID)
	assert.Equal(t, "mid", tasks[1].ID)
	assert.Equal(t, "old", tasks[2].ID)

	// Listing is idempotent.
	assert.Equal(t, tasks[0].ID, o.GetAllTasks()[0].ID)
}

func TestGetAllTasksStableOnTimestampTies(t *testing.T) {
	o := newTestOrchestrator(t)
	shared := time.Now()

	// Tasks of one plan all share a CreatedAt; creation order must still
	// produce one stable listing, last created first.
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		o.store.Create(&Task{ID: id, CreatedAt: shared})
	}

	first := o.GetAllTasks()
	require.Len(t, first, len(ids))
	for i, id := range []string{"e", "d", "c", "b", "a"} {
		assert.Equal(t, id, first[i].ID, "position %d", i)
	}

	for i := 0; i < 10; i++ {
		again := o.GetAllTasks()
		for j := range first {
			require.Equal(t, first[j].ID, again[j].ID, "iteration %d position %d", i, j)
		}
	}
}

func TestSearchMemoryAfterExecution(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := o.CreateTaskFromProblem(ctx, "Ship the billing exporter")
	require.NoError(t, err)
	waitForStatus(t, o)

	results, err := o.SearchMemory(ctx, "billing exporter", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Creation entries carry the problem statement so later plans can
	// surface this one as context.
	assert.Contains(t, results[0].Entry.Content, "Ship the billing exporter")
}

func TestSearchMemoryDisabled(t *testing.T) {
	logger := zap.NewNop()
	set := AgentSet{
		Planner:   agents.NewPlanner(nil, logger),
		Coder:     agents.NewCoder(nil, nil, logger),
		Debugger:  agents.NewDebugger(nil, logger),
		ProjectMg: agents.NewProjectManager(nil, logger),
	}
	o := New(Config{EnableMemory: false}, set, nil, logger)

	results, err := o.SearchMemory(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestAgentStatus(t *testing.T) {
	o := newTestOrchestrator(t)
	o.store.Create(&Task{ID: "t1", CreatedAt: time.Now()})

	status := o.AgentStatus(context.Background())
	assert.Equal(t, "Planner Agent", status.Planner.Name)
	assert.Equal(t, "Coder Agent", status.Coder.Name)
	assert.Equal(t, "Debugger Agent", status.Debugger.Name)
	assert.Equal(t, "PM Agent", status.PM.Name)
	assert.Equal(t, 1, status.TaskCount)
	assert.Equal(t, "list", status.Memory.Backend)
	assert.False(t, status.Coder.AIEnabled)
}

func TestShutdownClearsMemory(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := o.CreateTaskFromProblem(ctx, "Anything at all")
	require.NoError(t, err)
	waitForStatus(t, o)

	require.NoError(t, o.Shutdown(ctx))

	results, err := o.SearchMemory(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
