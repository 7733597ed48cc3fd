package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/ai"
)

// DebugStatus is the debugger's verdict on a task.
type DebugStatus string

const (
	DebugPassed         DebugStatus = "passed"
	DebugFailed         DebugStatus = "failed"
	DebugNeedsAttention DebugStatus = "needs_attention"
)

// DebugResult is the debugger's output for one task.
type DebugResult struct {
	Issues          []string    `json:"issues"`
	Fixes           []string    `json:"fixes"`
	TestSuggestions []string    `json:"testSuggestions"`
	Status          DebugStatus `json:"status"`
}

// Debugger analyzes tasks and their generated code for issues. Without a
// generator it falls back to a static review checklist.
type Debugger struct {
	gen    Generator
	logger *zap.Logger
}

func NewDebugger(gen Generator, logger *zap.Logger) *Debugger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debugger{gen: gen, logger: logger}
}

// Debug analyzes the task, including prior code when available. AI
// failures degrade to FallbackDebug rather than error.
func (d *Debugger) Debug(ctx context.Context, task TaskInfo, code string) (*DebugResult, error) {
	if d.gen == nil || !d.gen.Available() {
		return FallbackDebug(task), nil
	}

	resp, err := d.gen.Generate(ctx, ai.Request{
		Prompt:     debugPrompt(task, code),
		TaskType:   "debugging",
		Complexity: ai.ComplexityMedium,
		TaskID:     task.ID,
	})
	if err != nil {
		d.logger.Warn("debug generation failed, using fallback checklist",
			zap.String("task_id", task.ID), zap.Error(err))
		return FallbackDebug(task), nil
	}

	result, ok := parseDebug(resp.Content)
	if !ok {
		d.logger.Warn("debug output unparseable, using fallback checklist",
			zap.String("task_id", task.ID), zap.String("model", resp.Model))
		return FallbackDebug(task), nil
	}
	return result, nil
}

func parseDebug(text string) (*DebugResult, bool) {
	blob, ok := ExtractJSON(text)
	if !ok {
		return nil, false
	}
	var result DebugResult
	if err := json.Unmarshal([]byte(blob), &result); err != nil {
		return nil, false
	}
	switch result.Status {
	case DebugPassed, DebugFailed, DebugNeedsAttention:
	default:
		result.Status = DebugNeedsAttention
	}
	return &result, true
}

func debugPrompt(task TaskInfo, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `As a senior QA engineer and debugger, analyze this task and code:

Task: %s
Description: %s
Status: %s
Logs: %s
`, task.Title, task.Description, task.Status, strings.Join(task.Logs, "\n"))
	if code != "" {
		fmt.Fprintf(&b, "Code:\n%s\n", code)
	}
	b.WriteString(`
Provide a thorough analysis including:
1. Potential issues or bugs
2. Suggested fixes
3. Test cases that should be written
4. Overall status assessment

Return JSON response:
{
  "issues": ["list of potential issues"],
  "fixes": ["list of suggested fixes"],
  "testSuggestions": ["list of test cases to write"],
  "status": "passed|failed|needs_attention"
}

Be thorough but practical in your analysis.`)
	return b.String()
}

// FallbackDebug is the static review checklist used when AI analysis is
// unavailable.
func FallbackDebug(task TaskInfo) *DebugResult {
	return &DebugResult{
		Issues: []string{
			"Check for proper error handling",
			"Verify all imports are correct",
			"Ensure types are defined",
			"Validate input parameters",
			"Check for resource leaks",
		},
		Fixes: []string{
			"Add error handling around external calls",
			"Implement input validation",
			"Add proper interface definitions",
			"Include unit tests",
			"Add logging for debugging",
		},
		TestSuggestions: []string{
			fmt.Sprintf("Unit tests for %s", task.Title),
			fmt.Sprintf("Integration tests for %s", task.Title),
			"Error handling tests",
			"Performance tests if applicable",
		},
		Status: DebugNeedsAttention,
	}
}

// testComplexityThreshold decides the simulated test outcome: longer task
// descriptions count as more complex and fail the simulation.
const testComplexityThreshold = 200

// RunTests simulates a test run for the task.
func (d *Debugger) RunTests(task TaskInfo) *DebugResult {
	if len(task.Description) < testComplexityThreshold {
		return &DebugResult{
			Issues:          []string{},
			Fixes:           []string{},
			TestSuggestions: []string{fmt.Sprintf("Add integration tests for %s", task.Title)},
			Status:          DebugPassed,
		}
	}
	return &DebugResult{
		Issues: []string{
			"Function not properly exported",
			"Missing error handling",
			"Type definitions incomplete",
		},
		Fixes: []string{
			"Add proper export statements",
			"Implement error handling",
			"Complete interface definitions",
		},
		TestSuggestions: []string{fmt.Sprintf("Fix failing tests for %s", task.Title)},
		Status:          DebugFailed,
	}
}

// Status reports the debugger's readiness and capabilities.
func (d *Debugger) Status() Status {
	return Status{
		Name:         "Debugger Agent",
		Status:       "ready",
		Capabilities: []string{"code_analysis", "test_execution", "bug_detection"},
		AIEnabled:    d.gen != nil && d.gen.Available(),
	}
}
