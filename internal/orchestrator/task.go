package orchestrator

import (
	"time"

	"github.com/fyrsmithlabs/taskmated/internal/agents"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// ResultKind discriminates the TaskResult union.
type ResultKind string

const (
	ResultAnalysis ResultKind = "analysis"
	ResultCode     ResultKind = "code"
	ResultDebug    ResultKind = "debug"
	ResultPM       ResultKind = "pm"
)

// TaskResult holds the output of whichever agent executed the task.
// Exactly one payload field is set, indicated by Kind.
type TaskResult struct {
	Kind     ResultKind          `json:"kind"`
	Analysis string              `json:"analysis,omitempty"`
	Code     *agents.CodeResult  `json:"code,omitempty"`
	Debug    *agents.DebugResult `json:"debug,omitempty"`
	PM       []agents.Update     `json:"pm,omitempty"`
}

// Task is one unit of work tracked by the orchestrator.
type Task struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	Agent       string         `json:"agent"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Logs        []string       `json:"logs"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Result      *TaskResult    `json:"result,omitempty"`

	// seq is assigned by the store at creation and breaks ordering ties
	// between tasks sharing a CreatedAt, such as the tasks of one plan.
	seq uint64
}

// Clone returns a deep enough copy for handing outside the store's lock.
func (t *Task) Clone() *Task {
	c := *t
	c.Logs = append([]string(nil), t.Logs...)
	if t.Metadata != nil {
		c.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// typeHint extracts the metadata "type" string used for routing fallback
// code templates.
func (t *Task) typeHint() string {
	if t.Metadata == nil {
		return ""
	}
	hint, _ := t.Metadata["type"].(string)
	return hint
}

func (t *Task) info() agents.TaskInfo {
	return agents.TaskInfo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Logs:        append([]string(nil), t.Logs...),
		TypeHint:    t.typeHint(),
	}
}
