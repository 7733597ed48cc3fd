// Package github opens branches and pull requests for generated code.
package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var ErrNotConfigured = errors.New("github: token, owner and repo are required")

// Config holds repository coordinates and credentials.
type Config struct {
	Token      string
	Owner      string
	Repo       string
	BaseBranch string

	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
}

func (c *Config) ApplyDefaults() {
	if c.BaseBranch == "" {
		c.BaseBranch = "main"
	}
}

func (c *Config) Validate() error {
	if c.Token == "" || c.Owner == "" || c.Repo == "" {
		return ErrNotConfigured
	}
	return nil
}

// Client wraps the GitHub API for one repository.
type Client struct {
	gh     *github.Client
	cfg    Config
	logger *zap.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	gh := github.NewClient(tc)
	if cfg.BaseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("set base url: %w", err)
		}
	}
	return &Client{gh: gh, cfg: cfg, logger: logger}, nil
}

// CreateBranch creates a new branch off the configured base branch.
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	base, _, err := c.gh.Git.GetRef(ctx, c.cfg.Owner, c.cfg.Repo, "heads/"+c.cfg.BaseBranch)
	if err != nil {
		return fmt.Errorf("resolve base ref %q: %w", c.cfg.BaseBranch, err)
	}

	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{SHA: base.Object.SHA},
	}
	if _, _, err := c.gh.Git.CreateRef(ctx, c.cfg.Owner, c.cfg.Repo, ref); err != nil {
		return fmt.Errorf("create ref %q: %w", name, err)
	}
	c.logger.Debug("branch created", zap.String("branch", name))
	return nil
}

// CommitFile creates the file at path on the given branch.
func (c *Client) CommitFile(ctx context.Context, branch, path, message, content string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}
	if _, _, err := c.gh.Repositories.CreateFile(ctx, c.cfg.Owner, c.cfg.Repo, path, opts); err != nil {
		return fmt.Errorf("create file %q: %w", path, err)
	}
	return nil
}

// OpenPullRequest opens a PR from branch into the base branch and returns
// its HTML URL.
func (c *Client) OpenPullRequest(ctx context.Context, title, body, branch string) (string, error) {
	pr := &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branch),
		Base:  github.String(c.cfg.BaseBranch),
		Body:  github.String(body),
	}
	created, _, err := c.gh.PullRequests.Create(ctx, c.cfg.Owner, c.cfg.Repo, pr)
	if err != nil {
		return "", fmt.Errorf("create pull request: %w", err)
	}
	c.logger.Info("pull request opened",
		zap.String("branch", branch), zap.String("url", created.GetHTMLURL()))
	return created.GetHTMLURL(), nil
}
