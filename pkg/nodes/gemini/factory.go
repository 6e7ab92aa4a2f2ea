package gemini

import (
	"context"

	"github.com/weftlabs/weft/pkg/memory"
	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/protocol"
)

// ExecutorFactory creates Gemini node executors.
type ExecutorFactory struct {
	store   persistence.Persistence
	history *memory.Store
}

func NewExecutorFactory(store persistence.Persistence, history *memory.Store) *ExecutorFactory {
	return &ExecutorFactory{store: store, history: history}
}

func (f *ExecutorFactory) ID() string {
	return models.NodeTypeGemini
}

func (f *ExecutorFactory) Name() string {
	return "Gemini"
}

func (f *ExecutorFactory) Description() string {
	return "Runs a prompt against the Gemini model, with optional conversation memory and arithmetic tools."
}

func (f *ExecutorFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt text. Supports {{ $json.body.* }} and {{ $node.*.* }} placeholders.",
			},
			"memory": map[string]any{
				"type":        "boolean",
				"description": "Retain conversation history across executions of this workflow.",
			},
		},
		"required": []any{"prompt"},
	}
}

func (f *ExecutorFactory) Create(_ context.Context, config map[string]any, credentialsID string) (protocol.NodeExecutor, error) {
	return NewExecutor(config, credentialsID, f.store, f.history)
}
