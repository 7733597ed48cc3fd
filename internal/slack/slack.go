// Package slack posts status messages to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Field is one key/value pair inside an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

// Attachment is a colored block attached to a message.
type Attachment struct {
	Color  string  `json:"color,omitempty"`
	Title  string  `json:"title,omitempty"`
	Text   string  `json:"text,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Message is the webhook payload.
type Message struct {
	Text        string       `json:"text"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Config holds webhook settings. An empty WebhookURL leaves the client
// unconfigured; Post then reports delivered=false without error.
type Config struct {
	WebhookURL string
	Username   string
	IconEmoji  string
	Timeout    time.Duration
}

func (c *Config) ApplyDefaults() {
	if c.Username == "" {
		c.Username = "TaskMate Bot"
	}
	if c.IconEmoji == "" {
		c.IconEmoji = ":robot_face:"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Client posts messages to one webhook URL.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Configured reports whether a webhook URL is set.
func (c *Client) Configured() bool {
	return c.cfg.WebhookURL != ""
}

// Post delivers the message. The bool reports whether delivery happened;
// an unconfigured client returns (false, nil). Network or HTTP failures
// return (false, err) and are also logged, so callers can treat delivery
// as fire-and-forget.
func (c *Client) Post(ctx context.Context, msg Message) (bool, error) {
	if !c.Configured() {
		return false, nil
	}
	if msg.Username == "" {
		msg.Username = c.cfg.Username
	}
	if msg.IconEmoji == "" {
		msg.IconEmoji = c.cfg.IconEmoji
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("slack delivery failed", zap.Error(err))
		return false, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("slack delivery rejected", zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return true, nil
}
