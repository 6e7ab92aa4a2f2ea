// Package gemini implements the LLM node backed by the Gemini
// generateContent API, with optional per-workflow conversation memory and
// callable arithmetic tools.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weftlabs/weft/pkg/memory"
	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/protocol"
	"github.com/weftlabs/weft/pkg/template"
)

const (
	defaultAPIBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel      = "gemini-2.0-flash"

	// maxToolRounds bounds the function-calling loop.
	maxToolRounds = 10

	requestTimeout = 120 * time.Second
)

const systemInstruction = `You are a helpful AI assistant with access to tools.
Use a tool only when it can accomplish the task; otherwise respond naturally with your knowledge.
When asked to return JSON, return only valid JSON without extra text or backticks.`

type credentials struct {
	APIKey string `json:"geminiApiKey"`
}

// Executor performs one model invocation per execution of its node.
type Executor struct {
	Prompt        string
	Memory        bool
	CredentialsID string

	// BaseURL points at the Gemini API; overridable in tests.
	BaseURL string
	Model   string

	store   persistence.Persistence
	history *memory.Store
	client  *http.Client
}

func NewExecutor(config map[string]any, credentialsID string, store persistence.Persistence, history *memory.Store) (*Executor, error) {
	prompt, _ := config["prompt"].(string)
	useMemory, _ := config["memory"].(bool)

	return &Executor{
		Prompt:        prompt,
		Memory:        useMemory,
		CredentialsID: credentialsID,
		BaseURL:       defaultAPIBaseURL,
		Model:         defaultModel,
		store:         store,
		history:       history,
		client:        &http.Client{Timeout: requestTimeout},
	}, nil
}

func (e *Executor) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "gemini_node")

	creds, err := e.credentials(ctx)
	if err != nil {
		return nil, err
	}

	prompt := template.Resolve(e.Prompt, executionCtx)

	contents, err := e.conversation(ctx, executionCtx.WorkflowID, prompt, logger)
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, creds.APIKey, contents, logger)
	if err != nil {
		return nil, err
	}

	if e.Memory && e.history != nil {
		err = e.history.Append(ctx, executionCtx.WorkflowID, memory.RoleUser, prompt)
		if err != nil {
			return nil, err
		}

		err = e.history.Append(ctx, executionCtx.WorkflowID, memory.RoleAssistant, raw)
		if err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"text":  parseOutput(raw, logger),
		"query": prompt,
	}, nil
}

// conversation builds the turn list: retained history first (when memory is
// enabled), then the current prompt.
func (e *Executor) conversation(ctx context.Context, workflowID, prompt string, logger *slog.Logger) ([]content, error) {
	var contents []content

	if e.Memory && e.history != nil {
		entries, err := e.history.History(ctx, workflowID)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			role := "user"
			if entry.Role == memory.RoleAssistant {
				role = "model"
			}

			contents = append(contents, content{
				Role:  role,
				Parts: []part{{Text: entry.Content}},
			})
		}

		logger.InfoContext(ctx, "Loaded conversation memory", "workflow_id", workflowID, "turns", len(entries))
	}

	return append(contents, content{
		Role:  "user",
		Parts: []part{{Text: prompt}},
	}), nil
}

// generate drives the model, executing tool calls until the model produces
// text or the round limit is reached.
func (e *Executor) generate(ctx context.Context, apiKey string, contents []content, logger *slog.Logger) (string, error) {
	for round := 0; round < maxToolRounds; round++ {
		candidate, err := e.invoke(ctx, apiKey, contents)
		if err != nil {
			return "", err
		}

		call := candidate.functionCall()
		if call == nil {
			return strings.TrimSpace(candidate.text()), nil
		}

		logger.InfoContext(ctx, "Model requested tool", "tool", call.Name, "args", call.Args)

		result, err := callTool(call.Name, call.Args)
		if err != nil {
			return "", fmt.Errorf("tool %s failed: %w", call.Name, err)
		}

		contents = append(contents,
			content{Role: "model", Parts: candidate.Content.Parts},
			content{Role: "user", Parts: []part{{
				FunctionResponse: &functionResponse{
					Name:     call.Name,
					Response: map[string]any{"result": result},
				},
			}}},
		)
	}

	return "", fmt.Errorf("model did not produce a final answer within %d tool rounds", maxToolRounds)
}

func (e *Executor) invoke(ctx context.Context, apiKey string, contents []content) (*candidate, error) {
	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents:          contents,
		Tools:             toolDeclarations(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", e.BaseURL, e.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gemini request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(raw))
	}

	var response generateResponse

	err = json.Unmarshal(raw, &response)
	if err != nil {
		return nil, fmt.Errorf("gemini returned invalid JSON: %w", err)
	}

	if len(response.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	return &response.Candidates[0], nil
}

// parseOutput strips common code-fence wrapping and attempts to interpret
// the model output as JSON. Non-JSON output is not an error; the raw text
// is returned with a warning so downstream nodes still get a value.
func parseOutput(raw string, logger *slog.Logger) any {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed map[string]any

	err := json.Unmarshal([]byte(cleaned), &parsed)
	if err != nil {
		logger.Warn("Gemini output not valid JSON, returning as text")

		return raw
	}

	return parsed
}

func (e *Executor) credentials(ctx context.Context) (*credentials, error) {
	record, err := e.store.CredentialByID(ctx, e.CredentialsID)
	if err != nil {
		if errors.Is(err, persistence.ErrCredentialNotFound) {
			return nil, fmt.Errorf("gemini credentials not found: %w", protocol.ErrCredentialsNotFound)
		}

		return nil, fmt.Errorf("failed to load gemini credentials: %w", err)
	}

	var creds credentials

	err = record.DecodeData(&creds)
	if err != nil {
		return nil, fmt.Errorf("gemini credentials unreadable: %w", protocol.ErrInvalidCredentials)
	}

	if creds.APIKey == "" {
		return nil, protocol.InvalidCredentialsError("gemini", "geminiApiKey")
	}

	return &creds, nil
}
