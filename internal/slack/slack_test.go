package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostDeliversPayload(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{WebhookURL: srv.URL}, nil)
	delivered, err := c.Post(context.Background(), Message{
		Text: "Task COMPLETED: Add endpoint",
		Attachments: []Attachment{{
			Color:  "good",
			Title:  "Task completed",
			Fields: []Field{{Title: "Status", Value: "done", Short: true}},
		}},
	})
	require.NoError(t, err)
	assert.True(t, delivered)

	assert.Equal(t, "Task COMPLETED: Add endpoint", received.Text)
	// Defaults fill identity fields.
	assert.Equal(t, "TaskMate Bot", received.Username)
	assert.Equal(t, ":robot_face:", received.IconEmoji)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "good", received.Attachments[0].Color)
}

func TestPostUnconfigured(t *testing.T) {
	c := New(Config{}, nil)
	assert.False(t, c.Configured())

	delivered, err := c.Post(context.Background(), Message{Text: "x"})
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestPostServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{WebhookURL: srv.URL}, nil)
	delivered, err := c.Post(context.Background(), Message{Text: "x"})
	require.Error(t, err)
	assert.False(t, delivered)
}

func TestPostConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(Config{WebhookURL: srv.URL}, nil)
	delivered, err := c.Post(context.Background(), Message{Text: "x"})
	require.Error(t, err)
	assert.False(t, delivered)
}

func TestExplicitIdentityWins(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
	}))
	defer srv.Close()

	c := New(Config{WebhookURL: srv.URL, Username: "Custom", IconEmoji: ":gear:"}, nil)
	_, err := c.Post(context.Background(), Message{Text: "x", Username: "Override"})
	require.NoError(t, err)
	assert.Equal(t, "Override", received.Username)
	assert.Equal(t, ":gear:", received.IconEmoji)
}
