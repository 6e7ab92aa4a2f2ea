package slack

import (
	"context"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/protocol"
)

// ExecutorFactory creates Slack node executors.
type ExecutorFactory struct {
	store persistence.Persistence
}

func NewExecutorFactory(store persistence.Persistence) *ExecutorFactory {
	return &ExecutorFactory{store: store}
}

func (f *ExecutorFactory) ID() string {
	return models.NodeTypeSlack
}

func (f *ExecutorFactory) Name() string {
	return "Slack"
}

func (f *ExecutorFactory) Description() string {
	return "Posts a message to a Slack channel through a bot token."
}

func (f *ExecutorFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":        "string",
				"description": "Channel id or name. Supports placeholders.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message text. Supports placeholders.",
			},
		},
		"required": []any{"channel", "message"},
	}
}

func (f *ExecutorFactory) Create(_ context.Context, config map[string]any, credentialsID string) (protocol.NodeExecutor, error) {
	return NewExecutor(config, credentialsID, f.store)
}
