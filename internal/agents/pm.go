package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/slack"
)

// Event is the kind of task lifecycle change the project manager reports.
type Event string

const (
	EventCreated   Event = "created"
	EventStarted   Event = "started"
	EventCompleted Event = "completed"
	EventFailed    Event = "failed"
)

// Notifier delivers a formatted message to an external channel. Satisfied
// by the slack webhook client; nil disables external delivery.
type Notifier interface {
	Post(ctx context.Context, msg slack.Message) (bool, error)
	Configured() bool
}

// Update records one delivery attempt for a status message.
type Update struct {
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectManager reports task progress. Every update is logged locally;
// when a notifier is configured it is also posted there. Delivery failures
// are recorded in the returned updates, never surfaced as errors.
type ProjectManager struct {
	notifier Notifier
	logger   *zap.Logger

	now func() time.Time
}

func NewProjectManager(notifier Notifier, logger *zap.Logger) *ProjectManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectManager{notifier: notifier, logger: logger, now: time.Now}
}

// TaskUpdate announces a task lifecycle event.
func (pm *ProjectManager) TaskUpdate(ctx context.Context, task TaskInfo, event Event) []Update {
	message := formatTaskMessage(task, event)
	msg := slack.Message{
		Text: message,
		Attachments: []slack.Attachment{{
			Color: eventColor(event),
			Title: fmt.Sprintf("Task %s: %s", event, task.Title),
			Fields: []slack.Field{
				{Title: "Status", Value: task.Status, Short: true},
				{Title: "Task ID", Value: task.ID, Short: true},
			},
			Text: task.Description,
		}},
	}
	return pm.deliver(ctx, message, msg)
}

// ProjectSummary aggregates task counts by status and announces them.
func (pm *ProjectManager) ProjectSummary(ctx context.Context, tasks []TaskInfo) []Update {
	total := len(tasks)
	counts := map[string]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	progress := 0
	if total > 0 {
		progress = int(math.Round(float64(counts["done"]) / float64(total) * 100))
	}

	message := fmt.Sprintf(
		"Project Status Summary\n\nTotal Tasks: %d\nCompleted: %d\nIn Progress: %d\nFailed: %d\nQueued: %d\n\nProgress: %d%%",
		total, counts["done"], counts["in_progress"], counts["failed"], counts["queued"], progress)

	msg := slack.Message{
		Text: message,
		Attachments: []slack.Attachment{{
			Color: "#439FE0",
			Title: "Project Status Summary",
			Fields: []slack.Field{
				{Title: "Total Tasks", Value: fmt.Sprintf("%d", total), Short: true},
				{Title: "Progress", Value: fmt.Sprintf("%d%%", progress), Short: true},
				{Title: "Completed", Value: fmt.Sprintf("%d", counts["done"]), Short: true},
				{Title: "In Progress", Value: fmt.Sprintf("%d", counts["in_progress"]), Short: true},
				{Title: "Failed", Value: fmt.Sprintf("%d", counts["failed"]), Short: true},
				{Title: "Queued", Value: fmt.Sprintf("%d", counts["queued"]), Short: true},
			},
		}},
	}
	return pm.deliver(ctx, message, msg)
}

func (pm *ProjectManager) deliver(ctx context.Context, message string, msg slack.Message) []Update {
	var updates []Update

	if pm.notifier != nil && pm.notifier.Configured() {
		status := "sent"
		if delivered, err := pm.notifier.Post(ctx, msg); err != nil || !delivered {
			status = "failed"
			pm.logger.Warn("notification delivery failed", zap.Error(err))
		}
		updates = append(updates, Update{
			Message: message, Channel: "slack", Status: status, Timestamp: pm.now(),
		})
	}

	pm.logger.Info("pm update", zap.String("message", message))
	updates = append(updates, Update{
		Message: message, Channel: "log", Status: "sent", Timestamp: pm.now(),
	})
	return updates
}

func formatTaskMessage(task TaskInfo, event Event) string {
	return fmt.Sprintf("Task %s: %s\nStatus: %s\nDescription: %s",
		strings.ToUpper(string(event)), task.Title, task.Status, task.Description)
}

func eventColor(event Event) string {
	switch event {
	case EventCompleted:
		return "good"
	case EventFailed:
		return "danger"
	case EventStarted:
		return "warning"
	default:
		return "#439FE0"
	}
}

// Status reports the project manager's readiness and channels.
func (pm *ProjectManager) Status() Status {
	return Status{
		Name:         "PM Agent",
		Status:       "ready",
		Capabilities: []string{"slack_notifications", "progress_tracking", "reporting"},
		SlackEnabled: pm.notifier != nil && pm.notifier.Configured(),
	}
}
