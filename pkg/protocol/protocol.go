// Package protocol defines the contracts between the execution engine and
// node implementations.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weftlabs/weft/pkg/models"
)

var (
	// ErrCredentialsNotFound is returned when a node references a
	// credential record that does not exist.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrInvalidCredentials is returned when a credential record is
	// missing required fields for the node's platform.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NodeExecutor performs exactly one outbound operation for a node, using
// resolved parameters and credentials, and returns a result object merged
// into the execution context as $node.<id>. Executors never retry; any
// failure propagates as an error with a human-readable message.
type NodeExecutor interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ExecutorFactory builds executors of one node type.
type ExecutorFactory interface {
	// ID returns the node type this factory serves (e.g. "Telegram").
	ID() string
	Name() string
	Description() string
	// Schema returns the JSON schema the node config is validated against
	// before Create is called.
	Schema() map[string]any
	Create(ctx context.Context, config map[string]any, credentialsID string) (NodeExecutor, error)
}

// InvalidCredentialsError builds the standard error for a missing required
// credential field.
func InvalidCredentialsError(platform, field string) error {
	return fmt.Errorf("%s credentials missing %s: %w", platform, field, ErrInvalidCredentials)
}
