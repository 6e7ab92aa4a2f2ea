package registry_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/protocol"
	"github.com/weftlabs/weft/pkg/registry"
)

type fakeExecutor struct{}

func (fakeExecutor) Execute(context.Context, *models.ExecutionContext, *slog.Logger) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

type fakeFactory struct {
	schema map[string]any
}

func (f *fakeFactory) ID() string          { return "Fake" }
func (f *fakeFactory) Name() string        { return "Fake" }
func (f *fakeFactory) Description() string { return "test factory" }

func (f *fakeFactory) Schema() map[string]any { return f.schema }

func (f *fakeFactory) Create(context.Context, map[string]any, string) (protocol.NodeExecutor, error) {
	return fakeExecutor{}, nil
}

func newRegistry(schema map[string]any) *registry.Registry {
	reg := registry.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg.Register(&fakeFactory{schema: schema})

	return reg
}

func TestCreateExecutorUnknownType(t *testing.T) {
	t.Parallel()

	reg := newRegistry(nil)

	_, err := reg.CreateExecutor(context.Background(), "Nope", nil, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node type")
}

func TestCreateExecutorValidatesConfig(t *testing.T) {
	t.Parallel()

	reg := newRegistry(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []any{"message"},
	})

	_, err := reg.CreateExecutor(context.Background(), "Fake", map[string]any{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid Fake node config")

	executor, err := reg.CreateExecutor(context.Background(), "Fake", map[string]any{"message": "hi"}, "")
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestCreateExecutorNilSchemaSkipsValidation(t *testing.T) {
	t.Parallel()

	reg := newRegistry(nil)

	executor, err := reg.CreateExecutor(context.Background(), "Fake", nil, "")
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestNodeTypes(t *testing.T) {
	t.Parallel()

	reg := newRegistry(nil)

	assert.Equal(t, []string{"Fake"}, reg.NodeTypes())
}
