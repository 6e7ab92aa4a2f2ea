package resend

import (
	"context"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/protocol"
)

// ExecutorFactory creates Resend email node executors.
type ExecutorFactory struct {
	store persistence.Persistence
}

func NewExecutorFactory(store persistence.Persistence) *ExecutorFactory {
	return &ExecutorFactory{store: store}
}

func (f *ExecutorFactory) ID() string {
	return models.NodeTypeResendEmail
}

func (f *ExecutorFactory) Name() string {
	return "Resend Email"
}

func (f *ExecutorFactory) Description() string {
	return "Sends an HTML email through the Resend API."
}

func (f *ExecutorFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "string",
				"description": "Recipient address. Supports placeholders.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports placeholders.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "HTML body. Supports placeholders.",
			},
		},
		"required": []any{"to", "subject", "body"},
	}
}

func (f *ExecutorFactory) Create(_ context.Context, config map[string]any, credentialsID string) (protocol.NodeExecutor, error) {
	return NewExecutor(config, credentialsID, f.store)
}
