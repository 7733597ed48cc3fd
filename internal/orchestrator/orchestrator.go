// Package orchestrator tracks tasks through their lifecycle and dispatches
// them to agents.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/agents"
	"github.com/fyrsmithlabs/taskmated/internal/memory"
)

var tracer = otel.Tracer("taskmated.orchestrator")

var (
	ErrTaskNotFound = errors.New("orchestrator: task not found")
	ErrNotRetryable = errors.New("orchestrator: task is not in failed state")
	ErrEmptyProblem = errors.New("orchestrator: problem statement is required")
)

// memoryHintLimit bounds the prior context surfaced to the planner.
const memoryHintLimit = 5

// Config toggles collaborator features.
type Config struct {
	EnableMemory bool
}

// AgentSet groups the four executors.
type AgentSet struct {
	Planner   *agents.Planner
	Coder     *agents.Coder
	Debugger  *agents.Debugger
	ProjectMg *agents.ProjectManager
}

// SystemStatus is the aggregate report served by the status endpoint.
type SystemStatus struct {
	Planner   agents.Status `json:"planner"`
	Coder     agents.Status `json:"coder"`
	Debugger  agents.Status `json:"debugger"`
	PM        agents.Status `json:"pm"`
	Memory    memory.Stats  `json:"memory"`
	TaskCount int           `json:"taskCount"`
}

// Orchestrator owns the task store and drives plans end to end.
type Orchestrator struct {
	cfg    Config
	store  *taskStore
	agents AgentSet
	memory memory.Store
	logger *zap.Logger

	wg sync.WaitGroup
}

func New(cfg Config, set AgentSet, mem memory.Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		store:  newTaskStore(),
		agents: set,
		memory: mem,
		logger: logger,
	}
}

// CreateTaskFromProblem plans the problem, materializes queued tasks and
// schedules their sequential execution in the background. It returns the
// first task's id as soon as the plan is stored.
func (o *Orchestrator) CreateTaskFromProblem(ctx context.Context, problem string) (string, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.CreateTaskFromProblem")
	defer span.End()

	if problem == "" {
		return "", ErrEmptyProblem
	}

	plan := o.agents.Planner.Plan(ctx, problem, o.contextHints(ctx, problem))

	now := time.Now()
	ids := make([]string, 0, len(plan.Tasks))
	for _, desc := range plan.Tasks {
		task := &Task{
			ID:          uuid.NewString(),
			Title:       desc.Title,
			Description: desc.Description,
			Status:      StatusQueued,
			Agent:       desc.Agent,
			CreatedAt:   now,
			UpdatedAt:   now,
			Logs:        []string{fmt.Sprintf("Task created from problem: %s", problem)},
			Metadata:    desc.Metadata,
		}
		o.store.Create(task)
		ids = append(ids, task.ID)

		o.remember(ctx, task.ID, fmt.Sprintf("Task created: %s (problem: %s)", task.Title, problem), map[string]any{
			"status": string(task.Status),
			"agent":  task.Agent,
		})
		o.agents.ProjectMg.TaskUpdate(ctx, task.info(), agents.EventCreated)
	}

	o.logger.Info("plan created",
		zap.String("summary", plan.Summary),
		zap.Int("tasks", len(ids)))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for _, id := range ids {
			o.ExecuteTask(context.Background(), id)
		}
	}()

	span.SetStatus(codes.Ok, "")
	return ids[0], nil
}

// ExecuteTask runs one task through the state machine. Executor failures
// mark the task failed; they are never propagated. The only error case is
// an unknown task id.
func (o *Orchestrator) ExecuteTask(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "orchestrator.ExecuteTask")
	defer span.End()

	task, ok := o.store.Get(id)
	if !ok {
		span.SetStatus(codes.Error, "task not found")
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	o.store.Update(id, func(t *Task) {
		t.Status = StatusInProgress
		t.UpdatedAt = time.Now()
		t.Logs = append(t.Logs, fmt.Sprintf("Task execution started by %s agent", t.Agent))
	})
	task, _ = o.store.Get(id)
	o.agents.ProjectMg.TaskUpdate(ctx, task.info(), agents.EventStarted)

	result, err := o.dispatch(ctx, task)
	if err != nil {
		o.store.Update(id, func(t *Task) {
			t.Status = StatusFailed
			t.UpdatedAt = time.Now()
			t.Logs = append(t.Logs, fmt.Sprintf("Task failed: %s", err.Error()))
		})
		task, _ = o.store.Get(id)

		o.rememberError(ctx, id, fmt.Sprintf("Task failed: %s (%s)", task.Title, err.Error()))
		o.agents.ProjectMg.TaskUpdate(ctx, task.info(), agents.EventFailed)
		o.logger.Error("task failed", zap.String("task_id", id), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Ok, "failure recorded")
		return nil
	}

	o.store.Update(id, func(t *Task) {
		t.Status = StatusDone
		t.UpdatedAt = time.Now()
		t.Logs = append(t.Logs, "Task completed successfully")
		t.Result = result
	})
	task, _ = o.store.Get(id)

	o.remember(ctx, id, fmt.Sprintf("Task completed: %s", task.Title), map[string]any{
		"status": string(task.Status),
		"agent":  task.Agent,
		"result": string(result.Kind),
	})
	o.agents.ProjectMg.TaskUpdate(ctx, task.info(), agents.EventCompleted)
	o.logger.Info("task completed",
		zap.String("task_id", id), zap.String("agent", task.Agent))
	span.SetStatus(codes.Ok, "")
	return nil
}

// dispatch routes the task to its agent by normalized kind.
func (o *Orchestrator) dispatch(ctx context.Context, task *Task) (*TaskResult, error) {
	info := task.info()
	switch agents.ParseKind(task.Agent) {
	case agents.KindPlanner:
		summary, err := o.agents.Planner.Analyze(ctx, info)
		if err != nil {
			return nil, err
		}
		return &TaskResult{Kind: ResultAnalysis, Analysis: summary}, nil

	case agents.KindCoder:
		code, err := o.agents.Coder.Execute(ctx, info)
		if err != nil {
			return nil, err
		}
		o.store.Update(task.ID, func(t *Task) {
			t.Logs = append(t.Logs, fmt.Sprintf("Generated %s", code.Filename))
			if code.PRURL != "" {
				t.Logs = append(t.Logs, fmt.Sprintf("Created GitHub PR: %s", code.PRURL))
			}
		})
		return &TaskResult{Kind: ResultCode, Code: code}, nil

	case agents.KindDebugger:
		debug, err := o.agents.Debugger.Debug(ctx, info, o.priorCode(task))
		if err != nil {
			return nil, err
		}
		o.store.Update(task.ID, func(t *Task) {
			t.Logs = append(t.Logs, fmt.Sprintf("Debug analysis completed - Status: %s", debug.Status))
			if len(debug.Issues) > 0 {
				t.Logs = append(t.Logs, fmt.Sprintf("Found %d potential issues", len(debug.Issues)))
			}
		})
		return &TaskResult{Kind: ResultDebug, Debug: debug}, nil

	case agents.KindProjectManager:
		infos := make([]agents.TaskInfo, 0, o.store.Len())
		for _, t := range o.store.List() {
			infos = append(infos, t.info())
		}
		updates := o.agents.ProjectMg.ProjectSummary(ctx, infos)
		o.store.Update(task.ID, func(t *Task) {
			t.Logs = append(t.Logs, "Project summary sent to stakeholders")
		})
		return &TaskResult{Kind: ResultPM, PM: updates}, nil
	}
	return nil, fmt.Errorf("unknown agent: %s", task.Agent)
}

// priorCode finds the most recent code result so the debugger can inspect
// what the coder produced.
func (o *Orchestrator) priorCode(current *Task) string {
	for _, t := range o.store.List() {
		if t.ID == current.ID || t.Result == nil || t.Result.Kind != ResultCode {
			continue
		}
		return t.Result.Code.Code
	}
	return ""
}

// RetryTask re-executes a failed task synchronously. Tasks in any other
// state return ErrNotRetryable.
func (o *Orchestrator) RetryTask(ctx context.Context, id string) error {
	task, ok := o.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.Status != StatusFailed {
		return fmt.Errorf("%w: %s is %s", ErrNotRetryable, id, task.Status)
	}

	o.store.Update(id, func(t *Task) {
		t.Status = StatusQueued
		t.UpdatedAt = time.Now()
		t.Logs = append(t.Logs, "Task retry initiated")
	})
	o.logger.Info("task retry initiated", zap.String("task_id", id))
	return o.ExecuteTask(ctx, id)
}

// RetryAllFailed retries every failed task and reports how many retries
// were initiated. Individual failures do not stop the sweep.
func (o *Orchestrator) RetryAllFailed(ctx context.Context) int {
	retried := 0
	for _, task := range o.store.List() {
		if task.Status != StatusFailed {
			continue
		}
		if err := o.RetryTask(ctx, task.ID); err != nil {
			o.logger.Warn("retry failed", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		retried++
	}
	return retried
}

// ClearCompleted removes done tasks from the store and returns the count.
func (o *Orchestrator) ClearCompleted() int {
	cleared := 0
	for _, task := range o.store.List() {
		if task.Status == StatusDone && o.store.Delete(task.ID) {
			cleared++
		}
	}
	return cleared
}

// GetAllTasks returns every task, newest first.
func (o *Orchestrator) GetAllTasks() []*Task {
	return o.store.List()
}

// GetTask returns one task by id.
func (o *Orchestrator) GetTask(id string) (*Task, error) {
	task, ok := o.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, nil
}

// SearchMemory queries the memory subsystem. Disabled memory yields an
// empty result, not an error.
func (o *Orchestrator) SearchMemory(ctx context.Context, query string, limit int) ([]memory.SearchResult, error) {
	if !o.cfg.EnableMemory || o.memory == nil {
		return nil, nil
	}
	return o.memory.Retrieve(ctx, query, limit)
}

// AgentStatus aggregates every agent's status plus memory and task counts.
func (o *Orchestrator) AgentStatus(ctx context.Context) SystemStatus {
	status := SystemStatus{
		Planner:   o.agents.Planner.Status(),
		Coder:     o.agents.Coder.Status(),
		Debugger:  o.agents.Debugger.Status(),
		PM:        o.agents.ProjectMg.Status(),
		TaskCount: o.store.Len(),
	}
	if o.cfg.EnableMemory && o.memory != nil {
		if stats, err := o.memory.Stats(ctx); err == nil {
			status.Memory = stats
		}
	}
	return status
}

// Shutdown waits for in-flight plans and clears memory when enabled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if o.cfg.EnableMemory && o.memory != nil {
		if err := o.memory.Clear(ctx); err != nil {
			return fmt.Errorf("clear memory: %w", err)
		}
	}
	o.logger.Info("orchestrator shutdown complete")
	return nil
}

func (o *Orchestrator) contextHints(ctx context.Context, problem string) []agents.ContextHint {
	if !o.cfg.EnableMemory || o.memory == nil {
		return nil
	}
	results, err := o.memory.Retrieve(ctx, problem, memoryHintLimit)
	if err != nil {
		o.logger.Warn("memory hint retrieval failed", zap.Error(err))
		return nil
	}
	hints := make([]agents.ContextHint, 0, len(results))
	for _, r := range results {
		hints = append(hints, agents.ContextHint{Content: r.Entry.Content, Score: r.Score})
	}
	return hints
}

func (o *Orchestrator) remember(ctx context.Context, taskID, content string, metadata map[string]any) {
	if !o.cfg.EnableMemory || o.memory == nil {
		return
	}
	if _, err := memory.AddTaskContext(ctx, o.memory, taskID, content, metadata); err != nil {
		o.logger.Warn("memory write failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

func (o *Orchestrator) rememberError(ctx context.Context, taskID, content string) {
	if !o.cfg.EnableMemory || o.memory == nil {
		return
	}
	if _, err := memory.AddError(ctx, o.memory, taskID, content); err != nil {
		o.logger.Warn("memory write failed", zap.String("task_id", taskID), zap.Error(err))
	}
}
