package form

import (
	"context"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/protocol"
)

// ExecutorFactory creates form node executors.
type ExecutorFactory struct {
	store persistence.Persistence
}

func NewExecutorFactory(store persistence.Persistence) *ExecutorFactory {
	return &ExecutorFactory{store: store}
}

func (f *ExecutorFactory) ID() string {
	return models.NodeTypeForm
}

func (f *ExecutorFactory) Name() string {
	return "Form"
}

func (f *ExecutorFactory) Description() string {
	return "Resolves the hosted form attached to this node and returns its public URL."
}

func (f *ExecutorFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"nodeId": map[string]any{
				"type":        "string",
				"description": "Identifier of the node the form is registered under.",
			},
		},
		"required": []any{"nodeId"},
	}
}

func (f *ExecutorFactory) Create(_ context.Context, config map[string]any, _ string) (protocol.NodeExecutor, error) {
	return NewExecutor(config, f.store)
}
