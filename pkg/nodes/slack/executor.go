// Package slack implements the Slack chat-message node.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/protocol"
	"github.com/weftlabs/weft/pkg/template"
)

const defaultAPIBaseURL = "https://slack.com/api"

const requestTimeout = 30 * time.Second

type credentials struct {
	BotToken string `json:"botToken"`
}

// Executor posts one message to a Slack channel.
type Executor struct {
	Channel       string
	Message       string
	CredentialsID string

	// BaseURL points at the Slack Web API; overridable in tests.
	BaseURL string

	store  persistence.Persistence
	client *http.Client
}

func NewExecutor(config map[string]any, credentialsID string, store persistence.Persistence) (*Executor, error) {
	channel, _ := config["channel"].(string)
	message, _ := config["message"].(string)

	return &Executor{
		Channel:       channel,
		Message:       message,
		CredentialsID: credentialsID,
		BaseURL:       defaultAPIBaseURL,
		store:         store,
		client:        &http.Client{Timeout: requestTimeout},
	}, nil
}

func (e *Executor) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "slack_node")

	creds, err := e.credentials(ctx)
	if err != nil {
		return nil, err
	}

	channel := template.Resolve(e.Channel, executionCtx)
	text := template.Resolve(e.Message, executionCtx)

	body, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode slack request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build slack request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.BotToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack send failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read slack response: %w", err)
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}

	err = json.Unmarshal(raw, &result)
	if err != nil {
		return nil, fmt.Errorf("slack returned invalid JSON: %s", string(raw))
	}

	if !result.OK {
		return nil, fmt.Errorf("slack send failed: %s", result.Error)
	}

	logger.InfoContext(ctx, "Slack message posted", "channel", channel)

	return map[string]any{
		"channel": channel,
		"text":    text,
	}, nil
}

func (e *Executor) credentials(ctx context.Context) (*credentials, error) {
	record, err := e.store.CredentialByID(ctx, e.CredentialsID)
	if err != nil {
		if errors.Is(err, persistence.ErrCredentialNotFound) {
			return nil, fmt.Errorf("slack credentials not found: %w", protocol.ErrCredentialsNotFound)
		}

		return nil, fmt.Errorf("failed to load slack credentials: %w", err)
	}

	var creds credentials

	err = record.DecodeData(&creds)
	if err != nil {
		return nil, fmt.Errorf("slack credentials unreadable: %w", protocol.ErrInvalidCredentials)
	}

	if creds.BotToken == "" {
		return nil, protocol.InvalidCredentialsError("slack", "botToken")
	}

	return &creds, nil
}
