package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubHost records CodeHost calls.
type stubHost struct {
	branches []string
	commits  []string
	prURL    string

	branchErr error
	commitErr error
	prErr     error
}

func (h *stubHost) CreateBranch(ctx context.Context, name string) error {
	if h.branchErr != nil {
		return h.branchErr
	}
	h.branches = append(h.branches, name)
	return nil
}

func (h *stubHost) CommitFile(ctx context.Context, branch, path, message, content string) error {
	if h.commitErr != nil {
		return h.commitErr
	}
	h.commits = append(h.commits, path)
	return nil
}

func (h *stubHost) OpenPullRequest(ctx context.Context, title, body, branch string) (string, error) {
	if h.prErr != nil {
		return "", h.prErr
	}
	return h.prURL, nil
}

func TestExecuteParsesModelOutput(t *testing.T) {
	gen := &stubGen{content: `FILENAME|||health.go|||
DESCRIPTION|||health endpoint|||
CODE|||
package api
|||END`}
	c := NewCoder(gen, nil, zap.NewNop())

	result, err := c.Execute(context.Background(), TaskInfo{ID: "t1", Title: "Add health endpoint"})
	require.NoError(t, err)
	assert.Equal(t, "health.go", result.Filename)
	assert.Equal(t, "health endpoint", result.Description)
	assert.Contains(t, result.Code, "package api")
	assert.Empty(t, result.PRURL)
	assert.Equal(t, "code-generation", gen.lastReq.TaskType)
}

func TestExecutePublishesPullRequest(t *testing.T) {
	gen := &stubGen{content: `FILENAME|||health.go|||
DESCRIPTION|||d|||
CODE|||
x
|||END`}
	host := &stubHost{prURL: "https://github.com/acme/app/pull/7"}
	c := NewCoder(gen, host, zap.NewNop())
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	result, err := c.Execute(context.Background(), TaskInfo{ID: "abc", Title: "Add health endpoint"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/app/pull/7", result.PRURL)
	require.Len(t, host.branches, 1)
	assert.Equal(t, fmt.Sprintf("feature/task-abc-%d", 1700000000), host.branches[0])
	require.Len(t, host.commits, 1)
	assert.Equal(t, "generated/health.go", host.commits[0])
}

func TestExecuteHostFailureDegrades(t *testing.T) {
	gen := &stubGen{content: `FILENAME|||a.go|||
DESCRIPTION|||d|||
CODE|||
x
|||END`}
	host := &stubHost{branchErr: errors.New("403")}
	c := NewCoder(gen, host, zap.NewNop())

	result, err := c.Execute(context.Background(), TaskInfo{ID: "t1", Title: "T"})
	require.NoError(t, err)
	assert.Empty(t, result.PRURL)
	assert.Equal(t, "a.go", result.Filename)
}

func TestExecuteFallbackPublishesToo(t *testing.T) {
	// Fallback code still goes out as a PR when hosting works.
	host := &stubHost{prURL: "https://github.com/acme/app/pull/8"}
	c := NewCoder(nil, host, zap.NewNop())

	result, err := c.Execute(context.Background(), TaskInfo{ID: "t1", Title: "Implement Solution"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/app/pull/8", result.PRURL)
	assert.Contains(t, result.Description, "Fallback implementation template")
}

func TestFallbackCodeTemplates(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"api", "package api"},
		{"component", "package component"},
		{"utility", "package generated"},
		{"", "package generated"},
		{"implementation", "package generated"},
	}
	for _, tt := range tests {
		t.Run("hint "+tt.hint, func(t *testing.T) {
			result := FallbackCode(TaskInfo{Title: "Build Widget", Description: "d", TypeHint: tt.hint})
			assert.Contains(t, result.Code, tt.want)
			assert.Equal(t, "build-widget.go", result.Filename)
		})
	}
}

func TestExecuteGenerationErrorUsesFallback(t *testing.T) {
	c := NewCoder(&stubGen{err: errors.New("boom")}, nil, zap.NewNop())
	result, err := c.Execute(context.Background(), TaskInfo{Title: "T", TypeHint: "api"})
	require.NoError(t, err)
	assert.Contains(t, result.Code, "package api")
}

func TestExecuteUnparseableOutputUsesFallback(t *testing.T) {
	c := NewCoder(&stubGen{content: "I refuse."}, nil, zap.NewNop())
	result, err := c.Execute(context.Background(), TaskInfo{Title: "T"})
	require.NoError(t, err)
	assert.Contains(t, result.Description, "Fallback implementation template")
}

func TestCoderStatus(t *testing.T) {
	status := NewCoder(&stubGen{}, &stubHost{}, nil).Status()
	assert.Equal(t, "Coder Agent", status.Name)
	assert.True(t, status.AIEnabled)
	assert.True(t, status.GitHubEnabled)

	status = NewCoder(nil, nil, nil).Status()
	assert.False(t, status.AIEnabled)
	assert.False(t, status.GitHubEnabled)
}
