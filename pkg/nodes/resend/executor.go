// Package resend implements the email node backed by the Resend API.
package resend

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

const defaultAPIBaseURL = "https://api.resend.com"

// defaultFrom is the Resend onboarding sender used when the credential
// carries no verified domain address.
const defaultFrom = "onboarding@resend.dev"

const requestTimeout = 30 * time.Second

type credentials struct {
	APIKey     string `json:"apiKey"`
	DomainMail string `json:"resendDomainMail"`
}

// Executor sends one email per execution of its node.
type Executor struct {
	To            string
	Subject       string
	Body          string
	CredentialsID string

	// BaseURL points at the Resend API; overridable in tests.
	BaseURL string

	store  persistence.Persistence
	client *http.Client
}

func NewExecutor(config map[string]any, credentialsID string, store persistence.Persistence) (*Executor, error) {
	to, _ := config["to"].(string)
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	return &Executor{
		To:            to,
		Subject:       subject,
		Body:          body,
		CredentialsID: credentialsID,
		BaseURL:       defaultAPIBaseURL,
		store:         store,
		client:        &http.Client{Timeout: requestTimeout},
	}, nil
}

func (e *Executor) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "resend_node")

	creds, err := e.credentials(ctx)
	if err != nil {
		return nil, err
	}

	to := template.Resolve(e.To, executionCtx)
	subject := template.Resolve(e.Subject, executionCtx)
	body := template.Resolve(e.Body, executionCtx)

	from := creds.DomainMail
	if from == "" {
		from = defaultFrom
	}

	payload, err := json.Marshal(map[string]any{
		"from":    from,
		"to":      to,
		"subject": subject,
		"html":    body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build resend request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(raw))
	}

	logger.InfoContext(ctx, "Email sent", "to", to, "subject", subject)

	return map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	}, nil
}

func (e *Executor) credentials(ctx context.Context) (*credentials, error) {
	record, err := e.store.CredentialByID(ctx, e.CredentialsID)
	if err != nil {
		if errors.Is(err, persistence.ErrCredentialNotFound) {
			return nil, fmt.Errorf("email credentials not found: %w", protocol.ErrCredentialsNotFound)
		}

		return nil, fmt.Errorf("failed to load email credentials: %w", err)
	}

	var creds credentials

	err = record.DecodeData(&creds)
	if err != nil {
		return nil, fmt.Errorf("email credentials unreadable: %w", protocol.ErrInvalidCredentials)
	}

	if creds.APIKey == "" {
		return nil, protocol.InvalidCredentialsError("resend", "apiKey")
	}

	return &creds, nil
}
