package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/memory"
	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedCredential(t *testing.T, store *file.Persistence) {
	t.Helper()

	require.NoError(t, store.SaveCredential(context.Background(), &models.Credential{
		ID:       "cred-1",
		Title:    "gemini key",
		Platform: "gemini",
		Data:     json.RawMessage(`{"geminiApiKey":"g_123"}`),
	}))
}

func newHistory(t *testing.T) *memory.Store {
	t.Helper()

	server := miniredis.RunT(t)

	return memory.NewStore(redis.NewClient(&redis.Options{Addr: server.Addr()}))
}

func executionContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Trigger:     map[string]any{"question": "what is 2+2"},
		Nodes:       map[string]map[string]any{},
	}
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func newExecutorForTest(t *testing.T, serverURL string, config map[string]any, history *memory.Store) *Executor {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	seedCredential(t, store)

	executor, err := NewExecutor(config, "cred-1", store, history)
	require.NoError(t, err)
	executor.BaseURL = serverURL

	return executor
}

func TestExecuteReturnsModelText(t *testing.T) {
	t.Parallel()

	var captured generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(textResponse("four"))
	}))
	t.Cleanup(server.Close)

	executor := newExecutorForTest(t, server.URL, map[string]any{"prompt": "Answer: {{ $json.body.question }}"}, nil)

	result, err := executor.Execute(context.Background(), executionContext(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, "four", result["text"])
	assert.Equal(t, "Answer: what is 2+2", result["query"])

	last := captured.Contents[len(captured.Contents)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "Answer: what is 2+2", last.Parts[0].Text)
	require.Len(t, captured.Tools, 1)
	assert.Len(t, captured.Tools[0].FunctionDeclarations, 3)
}

func TestExecuteParsesJSONOutput(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(textResponse("```json\n{\"answer\": 4}\n```"))
	}))
	t.Cleanup(server.Close)

	executor := newExecutorForTest(t, server.URL, map[string]any{"prompt": "p"}, nil)

	result, err := executor.Execute(context.Background(), executionContext(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"answer": float64(4)}, result["text"])
}

func TestExecuteRunsToolCalls(t *testing.T) {
	t.Parallel()

	var requests []generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest

		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		if len(requests) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []any{
					map[string]any{
						"content": map[string]any{
							"role": "model",
							"parts": []any{
								map[string]any{"functionCall": map[string]any{
									"name": "sum",
									"args": map[string]any{"a": 2, "b": 2},
								}},
							},
						},
					},
				},
			})

			return
		}

		_ = json.NewEncoder(w).Encode(textResponse("the result is 4"))
	}))
	t.Cleanup(server.Close)

	executor := newExecutorForTest(t, server.URL, map[string]any{"prompt": "p"}, nil)

	result, err := executor.Execute(context.Background(), executionContext(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, "the result is 4", result["text"])
	require.Len(t, requests, 2)

	// The second round carries the model turn and the tool result.
	second := requests[1].Contents
	require.GreaterOrEqual(t, len(second), 3)

	toolTurn := second[len(second)-1]
	require.NotNil(t, toolTurn.Parts[0].FunctionResponse)
	assert.Equal(t, "sum", toolTurn.Parts[0].FunctionResponse.Name)
	assert.Equal(t, map[string]any{"result": float64(4)}, toolTurn.Parts[0].FunctionResponse.Response)
}

func TestExecuteWithMemory(t *testing.T) {
	t.Parallel()

	history := newHistory(t)
	ctx := context.Background()

	require.NoError(t, history.Append(ctx, "wf-1", memory.RoleUser, "earlier question"))
	require.NoError(t, history.Append(ctx, "wf-1", memory.RoleAssistant, "earlier answer"))

	var captured generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(textResponse("fresh answer"))
	}))
	t.Cleanup(server.Close)

	executor := newExecutorForTest(t, server.URL, map[string]any{"prompt": "p", "memory": true}, history)

	_, err := executor.Execute(ctx, executionContext(), testLogger())
	require.NoError(t, err)

	require.Len(t, captured.Contents, 3)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "earlier question", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", captured.Contents[1].Role)
	assert.Equal(t, "earlier answer", captured.Contents[1].Parts[0].Text)

	entries, err := history.History(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "p", entries[2].Content)
	assert.Equal(t, "fresh answer", entries[3].Content)
}

func TestExecuteWithMemoryAccumulatesAcrossRuns(t *testing.T) {
	t.Parallel()

	history := newHistory(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(textResponse("reply"))
	}))
	t.Cleanup(server.Close)

	for _, prompt := range []string{"hi", "hello"} {
		executor := newExecutorForTest(t, server.URL, map[string]any{"prompt": prompt, "memory": true}, history)

		_, err := executor.Execute(ctx, executionContext(), testLogger())
		require.NoError(t, err)
	}

	entries, err := history.History(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, memory.RoleUser, entries[0].Role)
	assert.Equal(t, "hi", entries[0].Content)
	assert.Equal(t, memory.RoleAssistant, entries[1].Role)
	assert.Equal(t, memory.RoleUser, entries[2].Role)
	assert.Equal(t, "hello", entries[2].Content)
	assert.Equal(t, memory.RoleAssistant, entries[3].Role)
}

func TestExecuteAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	t.Cleanup(server.Close)

	executor := newExecutorForTest(t, server.URL, map[string]any{"prompt": "p"}, nil)

	_, err := executor.Execute(context.Background(), executionContext(), testLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestCallTool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		expected float64
		wantErr  bool
	}{
		{name: "sum", tool: "sum", args: map[string]any{"a": 2.0, "b": 3.0}, expected: 5},
		{name: "multiply", tool: "multiply", args: map[string]any{"a": 4.0, "b": 2.5}, expected: 10},
		{name: "power", tool: "power", args: map[string]any{"base": 2.0, "exponent": 10.0}, expected: 1024},
		{name: "unknown tool", tool: "divide", args: map[string]any{"a": 1.0, "b": 2.0}, wantErr: true},
		{name: "non numeric arg", tool: "sum", args: map[string]any{"a": "x", "b": 2.0}, wantErr: true},
		{name: "missing arg", tool: "sum", args: map[string]any{"a": 1.0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := callTool(tt.tool, tt.args)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseOutputFallsBackToRawText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain prose", parseOutput("plain prose", testLogger()))
	assert.Equal(t, map[string]any{"a": "b"}, parseOutput("```json\n{\"a\":\"b\"}\n```", testLogger()))
	assert.Equal(t, map[string]any{"a": "b"}, parseOutput(`{"a":"b"}`, testLogger()))
}
