// Package telegram implements the Telegram chat-message node.
package telegram

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

const defaultAPIBaseURL = "https://api.telegram.org"

const requestTimeout = 30 * time.Second

type credentials struct {
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatId"`
}

// Executor sends one Telegram message per execution of its node.
type Executor struct {
	Message       string
	CredentialsID string

	// BaseURL points at the Telegram Bot API; overridable in tests.
	BaseURL string

	store  persistence.Persistence
	client *http.Client
}

func NewExecutor(config map[string]any, credentialsID string, store persistence.Persistence) (*Executor, error) {
	message, _ := config["message"].(string)

	return &Executor{
		Message:       message,
		CredentialsID: credentialsID,
		BaseURL:       defaultAPIBaseURL,
		store:         store,
		client:        &http.Client{Timeout: requestTimeout},
	}, nil
}

func (e *Executor) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "telegram_node")

	creds, err := e.credentials(ctx)
	if err != nil {
		return nil, err
	}

	message := template.Resolve(e.Message, executionCtx)

	body, err := json.Marshal(map[string]any{
		"chat_id": creds.ChatID,
		"text":    message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", e.BaseURL, creds.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build telegram request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send telegram message: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read telegram response: %w", err)
	}

	logger.InfoContext(ctx, "Telegram response", "status", resp.StatusCode)

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}

	err = json.Unmarshal(raw, &result)
	if err != nil {
		return nil, fmt.Errorf("telegram returned invalid JSON: %s", string(raw))
	}

	if !result.OK {
		if result.Description == "" {
			result.Description = string(raw)
		}

		return nil, fmt.Errorf("telegram API error: %s", result.Description)
	}

	return map[string]any{"message": message}, nil
}

func (e *Executor) credentials(ctx context.Context) (*credentials, error) {
	record, err := e.store.CredentialByID(ctx, e.CredentialsID)
	if err != nil {
		if errors.Is(err, persistence.ErrCredentialNotFound) {
			return nil, fmt.Errorf("telegram credentials not found: %w", protocol.ErrCredentialsNotFound)
		}

		return nil, fmt.Errorf("failed to load telegram credentials: %w", err)
	}

	var creds credentials

	err = record.DecodeData(&creds)
	if err != nil {
		return nil, fmt.Errorf("telegram credentials unreadable: %w", protocol.ErrInvalidCredentials)
	}

	if creds.BotToken == "" {
		return nil, protocol.InvalidCredentialsError("telegram", "botToken")
	}

	if creds.ChatID == "" {
		return nil, protocol.InvalidCredentialsError("telegram", "chatId")
	}

	return &creds, nil
}
