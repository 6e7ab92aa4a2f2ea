// Package form implements the form node, which resolves the hosted form
// attached to a workflow node and exposes its public URL to downstream nodes.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
)

// Executor looks up the form registered for its node.
type Executor struct {
	NodeID string

	store persistence.Persistence
}

func NewExecutor(config map[string]any, store persistence.Persistence) (*Executor, error) {
	nodeID, _ := config["nodeId"].(string)
	if nodeID == "" {
		return nil, errors.New("form node requires a nodeId")
	}

	return &Executor{NodeID: nodeID, store: store}, nil
}

func (e *Executor) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "form_node")

	record, err := e.store.FormByWorkflowAndNode(ctx, executionCtx.WorkflowID, e.NodeID)
	if err != nil {
		if errors.Is(err, persistence.ErrFormNotFound) {
			return nil, fmt.Errorf("no form registered for node %s: %w", e.NodeID, err)
		}

		return nil, fmt.Errorf("failed to load form for node %s: %w", e.NodeID, err)
	}

	logger.InfoContext(ctx, "Resolved form", "form_id", record.ID, "node_id", e.NodeID)

	return map[string]any{
		"formId": record.ID,
		"url":    fmt.Sprintf("/forms/%s", record.ID),
	}, nil
}
