package telegram

import (
	"context"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/protocol"
)

// ExecutorFactory creates Telegram node executors.
type ExecutorFactory struct {
	store persistence.Persistence
}

func NewExecutorFactory(store persistence.Persistence) *ExecutorFactory {
	return &ExecutorFactory{store: store}
}

func (f *ExecutorFactory) ID() string {
	return models.NodeTypeTelegram
}

func (f *ExecutorFactory) Name() string {
	return "Telegram"
}

func (f *ExecutorFactory) Description() string {
	return "Sends a message to a Telegram chat through a bot."
}

func (f *ExecutorFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message text. Supports {{ $json.body.* }} and {{ $node.*.* }} placeholders.",
			},
		},
		"required": []any{"message"},
	}
}

func (f *ExecutorFactory) Create(_ context.Context, config map[string]any, credentialsID string) (protocol.NodeExecutor, error) {
	return NewExecutor(config, credentialsID, f.store)
}
