// Package registry maps node types to their executor factories and
// validates node configuration before executors are built.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/weftlabs/weft/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.ExecutorFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.ExecutorFactory),
	}
}

func (r *Registry) Register(factory protocol.ExecutorFactory) {
	r.factories[factory.ID()] = factory
}

// NodeTypes returns the registered node types.
func (r *Registry) NodeTypes() []string {
	types := make([]string, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}

	return types
}

// CreateExecutor validates config against the factory's schema and builds
// an executor for the given node type.
func (r *Registry) CreateExecutor(ctx context.Context, nodeType string, config map[string]any, credentialsID string) (protocol.NodeExecutor, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}

	err := r.validateConfig(factory, config)
	if err != nil {
		return nil, fmt.Errorf("invalid %s node config: %w", nodeType, err)
	}

	return factory.Create(ctx, config, credentialsID)
}

func (r *Registry) validateConfig(factory protocol.ExecutorFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = make(map[string]any)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, validationErr := range result.Errors() {
			details = append(details, validationErr.String())
		}

		return fmt.Errorf("config does not match schema: %s", strings.Join(details, "; "))
	}

	return nil
}
