package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/ai"
)

// CodeResult is the coder's output for one task.
type CodeResult struct {
	Code        string `json:"code"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
	PRURL       string `json:"prUrl,omitempty"`
}

// CodeHost opens branches and pull requests for generated code. Satisfied
// by the github package; nil disables the integration.
type CodeHost interface {
	CreateBranch(ctx context.Context, name string) error
	CommitFile(ctx context.Context, branch, path, message, content string) error
	OpenPullRequest(ctx context.Context, title, body, branch string) (string, error)
}

// Coder generates code for a task, via the model when one is available and
// from deterministic templates otherwise. When a CodeHost is wired the
// result is pushed as a pull request; hosting failures never fail the task.
type Coder struct {
	gen    Generator
	host   CodeHost
	parser CodeParser
	logger *zap.Logger

	now func() time.Time
}

func NewCoder(gen Generator, host CodeHost, logger *zap.Logger) *Coder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coder{gen: gen, host: host, logger: logger, now: time.Now}
}

// Execute produces code for the task. It never returns an error for AI or
// hosting failures; the result degrades instead.
func (c *Coder) Execute(ctx context.Context, task TaskInfo) (*CodeResult, error) {
	result := c.generate(ctx, task)

	if c.host != nil {
		if url, err := c.publish(ctx, task, result); err != nil {
			c.logger.Warn("pull request creation failed",
				zap.String("task_id", task.ID), zap.Error(err))
		} else {
			result.PRURL = url
		}
	}
	return result, nil
}

func (c *Coder) generate(ctx context.Context, task TaskInfo) *CodeResult {
	if c.gen == nil || !c.gen.Available() {
		return FallbackCode(task)
	}

	resp, err := c.gen.Generate(ctx, ai.Request{
		Prompt:     codePrompt(task),
		TaskType:   "code-generation",
		Complexity: ai.ComplexityHigh,
		TaskID:     task.ID,
	})
	if err != nil {
		c.logger.Warn("code generation failed, using fallback template",
			zap.String("task_id", task.ID), zap.Error(err))
		return FallbackCode(task)
	}

	payload, ok := c.parser.ParseCascade(resp.Content)
	if !ok {
		c.logger.Warn("code output unparseable, using fallback template",
			zap.String("task_id", task.ID), zap.String("model", resp.Model))
		return FallbackCode(task)
	}
	desc := payload.Description
	if desc == "" {
		desc = "AI-generated code"
	}
	return &CodeResult{Code: payload.Code, Filename: payload.Filename, Description: desc}
}

// publish pushes the result as a pull request: fresh branch, one commit
// under generated/, PR against the base branch.
func (c *Coder) publish(ctx context.Context, task TaskInfo, result *CodeResult) (string, error) {
	branch := fmt.Sprintf("feature/task-%s-%d", task.ID, c.now().Unix())

	if err := c.host.CreateBranch(ctx, branch); err != nil {
		return "", fmt.Errorf("create branch: %w", err)
	}

	path := "generated/" + result.Filename
	message := fmt.Sprintf("feat: %s", task.Title)
	if err := c.host.CommitFile(ctx, branch, path, message, result.Code); err != nil {
		return "", fmt.Errorf("commit file: %w", err)
	}

	body := fmt.Sprintf(
		"## AI-Generated Code\n\n**Task**: %s\n**Description**: %s\n\n**Generated Code**: `%s`\n\n%s\n",
		task.Title, task.Description, result.Filename, result.Description)
	url, err := c.host.OpenPullRequest(ctx, task.Title, body, branch)
	if err != nil {
		return "", fmt.Errorf("open pull request: %w", err)
	}
	return url, nil
}

func codePrompt(task TaskInfo) string {
	return fmt.Sprintf(`As a senior software developer, implement this task:

Title: %s
Description: %s

Generate production-ready code that:
1. Follows best practices and modern patterns
2. Includes proper error handling
3. Is well-documented with comments
4. Follows the existing project structure

Return your response in this EXACT format with three sections separated by |||:

FILENAME|||your-file-name.go|||
DESCRIPTION|||Brief description of what the code does|||
CODE|||
// Your actual code here
// Can be multiple lines
// No escaping needed
|||END`, task.Title, task.Description)
}

// FallbackCode emits a deterministic template when generation is
// unavailable. The template is keyed by the task's type hint.
func FallbackCode(task TaskInfo) *CodeResult {
	var code string
	switch task.TypeHint {
	case "api":
		code = fmt.Sprintf(`// %s
// %s

package api

import "net/http"

func Handler(w http.ResponseWriter, r *http.Request) {
	// Implementation needed for: %s
	http.Error(w, "not implemented", http.StatusNotImplemented)
}
`, task.Title, task.Description, task.Title)
	case "component":
		code = fmt.Sprintf(`// %s
// %s

package component

// Render produces the view for %s.
func Render() string {
	// Implementation needed for: %s
	return "%s"
}
`, task.Title, task.Description, task.Title, task.Description, task.Title)
	default:
		code = fmt.Sprintf(`// %s
// %s

package generated

import "errors"

// ImplementTask is a placeholder for: %s
func ImplementTask() error {
	return errors.New("not implemented: %s")
}
`, task.Title, task.Description, task.Description, task.Title)
	}

	return &CodeResult{
		Code:        code,
		Filename:    slugFilename(task.Title),
		Description: fmt.Sprintf("Fallback implementation template for: %s", task.Title),
	}
}

func slugFilename(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Join(strings.Fields(slug), "-")
	if slug == "" {
		slug = "generated-code"
	}
	return slug + ".go"
}

// Status reports the coder's readiness and integrations.
func (c *Coder) Status() Status {
	return Status{
		Name:          "Coder Agent",
		Status:        "ready",
		Capabilities:  []string{"code_generation", "github_integration"},
		AIEnabled:     c.gen != nil && c.gen.Available(),
		GitHubEnabled: c.host != nil,
	}
}
