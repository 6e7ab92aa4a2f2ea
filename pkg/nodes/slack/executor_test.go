package slack_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/nodes/slack"
	"github.com/weftlabs/weft/pkg/persistence/file"
	"github.com/weftlabs/weft/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedCredential(t *testing.T, store *file.Persistence, data string) {
	t.Helper()

	require.NoError(t, store.SaveCredential(context.Background(), &models.Credential{
		ID:       "cred-1",
		Title:    "bot",
		Platform: "slack",
		Data:     json.RawMessage(data),
	}))
}

func executionContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Trigger:     map[string]any{"team": "ops"},
		Nodes: map[string]map[string]any{
			"prev": {"summary": "all green"},
		},
	}
}

func TestExecutePostsResolvedMessage(t *testing.T) {
	t.Parallel()

	var captured struct {
		path string
		auth string
		body map[string]any
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))

		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	t.Cleanup(server.Close)

	store := file.NewPersistence(t.TempDir())
	seedCredential(t, store, `{"botToken":"xoxb-1"}`)

	executor, err := slack.NewExecutor(map[string]any{
		"channel": "#{{ $json.body.team }}",
		"message": "status: {{ $node.prev.summary }}",
	}, "cred-1", store)
	require.NoError(t, err)
	executor.BaseURL = server.URL

	result, err := executor.Execute(context.Background(), executionContext(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, "/chat.postMessage", captured.path)
	assert.Equal(t, "Bearer xoxb-1", captured.auth)
	assert.Equal(t, "#ops", captured.body["channel"])
	assert.Equal(t, "status: all green", captured.body["text"])
	assert.Equal(t, map[string]any{"channel": "#ops", "text": "status: all green"}, result)
}

func TestExecuteAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	t.Cleanup(server.Close)

	store := file.NewPersistence(t.TempDir())
	seedCredential(t, store, `{"botToken":"xoxb-1"}`)

	executor, err := slack.NewExecutor(map[string]any{"channel": "#x", "message": "hi"}, "cred-1", store)
	require.NoError(t, err)
	executor.BaseURL = server.URL

	_, err = executor.Execute(context.Background(), executionContext(), testLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestExecuteMissingToken(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	seedCredential(t, store, `{}`)

	executor, err := slack.NewExecutor(map[string]any{"channel": "#x", "message": "hi"}, "cred-1", store)
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), executionContext(), testLogger())

	assert.True(t, errors.Is(err, protocol.ErrInvalidCredentials))
}

func TestFactory(t *testing.T) {
	t.Parallel()

	factory := slack.NewExecutorFactory(file.NewPersistence(t.TempDir()))

	assert.Equal(t, models.NodeTypeSlack, factory.ID())
	assert.NotNil(t, factory.Schema())
}
