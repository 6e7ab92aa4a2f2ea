package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/weftlabs/weft/pkg/eventbus"
	"github.com/weftlabs/weft/pkg/events"
	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/otelhelper"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/queue"
	"github.com/weftlabs/weft/pkg/registry"
)

// Coordinator runs executions claimed from the work queue. It is the single
// writer of an execution's state while the run is in flight: it persists
// every milestone before publishing the matching event, so the stored record
// never lags behind what observers have seen.
type Coordinator struct {
	workerID  string
	store     persistence.Persistence
	registry  *registry.Registry
	publisher eventbus.Publisher
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewCoordinator(
	workerID string,
	store persistence.Persistence,
	reg *registry.Registry,
	publisher eventbus.Publisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Coordinator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &Coordinator{
		workerID:  workerID,
		store:     store,
		registry:  reg,
		publisher: publisher,
		tracer:    tracer,
		logger:    logger.With("module", "coordinator"),
	}
}

// Handle processes one claimed queue message. A nil return means the
// execution reached a terminal outcome (or the message is poison) and the
// message may be acknowledged; a non-nil return means an infrastructure
// failure interrupted the run and the message should stay pending.
func (c *Coordinator) Handle(ctx context.Context, msg queue.Message) error {
	logger := c.logger.With(
		"execution_id", msg.ExecutionID,
		"workflow_id", msg.WorkflowID,
	)

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "execution.run",
		attribute.String(otelhelper.ExecutionIDKey, msg.ExecutionID),
		attribute.String(otelhelper.WorkflowIDKey, msg.WorkflowID),
		attribute.String(otelhelper.WorkerIDKey, c.workerID),
	)
	defer span.End()

	workflow, err := c.store.WorkflowByID(ctx, msg.WorkflowID)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.WarnContext(ctx, "Workflow not found, dropping message")

			return nil
		}

		return fmt.Errorf("failed to load workflow: %w", err)
	}

	execution, err := c.store.ExecutionByID(ctx, msg.ExecutionID)
	if err != nil {
		if persistence.IsNotFound(err) {
			logger.WarnContext(ctx, "Execution not found, dropping message")

			return nil
		}

		return fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.Terminal() {
		logger.InfoContext(ctx, "Execution already finished, dropping duplicate delivery", "status", execution.Status)

		return nil
	}

	execution, err = c.store.UpdateExecution(ctx, execution.ID, func(e *models.Execution) error {
		e.Status = models.ExecutionStatusRunning

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	c.publish(ctx, workflow.ID, events.ExecutionStarted{
		BaseEvent:  events.NewBaseEvent(events.ExecutionStartedEvent, execution.ID, workflow.ID),
		TotalTasks: execution.TotalTasks,
	})

	logger.InfoContext(ctx, "Execution started", "total_tasks", execution.TotalTasks)

	return c.run(ctx, workflow, execution, logger)
}

func (c *Coordinator) run(ctx context.Context, workflow *models.Workflow, execution *models.Execution, logger *slog.Logger) error {
	executionCtx := models.NewExecutionContext(execution)
	scheduler := NewScheduler(workflow)

	for {
		nodeID, ok := scheduler.Next()
		if !ok {
			break
		}

		node := workflow.Nodes[nodeID]

		execution, ok = c.runNode(ctx, workflow, execution, executionCtx, node, logger)
		if execution == nil {
			return fmt.Errorf("failed to persist progress of node %s", nodeID)
		}

		if !ok {
			return nil
		}

		scheduler.Complete(nodeID)
	}

	status := models.ExecutionStatusSuccess
	if scheduler.Remaining() > 0 {
		logger.ErrorContext(ctx, "Dependency cycle left nodes unreachable", "unreachable", scheduler.Remaining())

		status = models.ExecutionStatusFailed
	}

	return c.finish(ctx, workflow.ID, execution.ID, status, logger)
}

// runNode executes one node and records its outcome. The returned execution
// is the persisted state after the outcome, or nil when persisting failed.
// ok is false when the node failed and the execution was finished as FAILED.
func (c *Coordinator) runNode(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.Execution,
	executionCtx *models.ExecutionContext,
	node *models.Node,
	logger *slog.Logger,
) (*models.Execution, bool) {
	nodeLogger := logger.With("node_id", node.ID, "node_type", node.Type)

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "execution.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	c.publish(ctx, workflow.ID, events.NodeStarted{
		BaseEvent: events.NewBaseEvent(events.NodeStartedEvent, execution.ID, workflow.ID),
		NodeID:    node.ID,
		NodeType:  node.Type,
	})

	result, err := c.execute(ctx, node, executionCtx, nodeLogger)
	if err != nil {
		otelhelper.SetError(span, err)
		nodeLogger.ErrorContext(ctx, "Node failed", "error", err)

		execution, updateErr := c.store.UpdateExecution(ctx, execution.ID, func(e *models.Execution) error {
			e.Logs[node.ID] = fmt.Sprintf("Error: %s", err.Error())
			e.Status = models.ExecutionStatusFailed

			return nil
		})
		if updateErr != nil {
			nodeLogger.ErrorContext(ctx, "Failed to persist node failure", "error", updateErr)

			return nil, false
		}

		c.publish(ctx, workflow.ID, events.NodeFailed{
			BaseEvent: events.NewBaseEvent(events.NodeFailedEvent, execution.ID, workflow.ID),
			NodeID:    node.ID,
			NodeType:  node.Type,
			Error:     err.Error(),
		})
		c.publish(ctx, workflow.ID, events.ExecutionFinished{
			BaseEvent:  events.NewBaseEvent(events.ExecutionFinishedEvent, execution.ID, workflow.ID),
			Status:     string(models.ExecutionStatusFailed),
			TasksDone:  execution.TasksDone,
			TotalTasks: execution.TotalTasks,
		})

		logger.InfoContext(ctx, "Execution failed", "tasks_done", execution.TasksDone)

		return execution, false
	}

	executionCtx.Nodes[node.ID] = result

	execution, err = c.store.UpdateExecution(ctx, execution.ID, func(e *models.Execution) error {
		e.TasksDone++
		e.Logs[node.ID] = "Success"

		return nil
	})
	if err != nil {
		nodeLogger.ErrorContext(ctx, "Failed to persist node success", "error", err)

		return nil, false
	}

	c.publish(ctx, workflow.ID, events.NodeSucceeded{
		BaseEvent: events.NewBaseEvent(events.NodeSucceededEvent, execution.ID, workflow.ID),
		NodeID:    node.ID,
		NodeType:  node.Type,
	})

	nodeLogger.InfoContext(ctx, "Node succeeded", "tasks_done", execution.TasksDone)

	return execution, true
}

func (c *Coordinator) execute(ctx context.Context, node *models.Node, executionCtx *models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	config := maps.Clone(node.Config)
	if config == nil {
		config = make(map[string]any)
	}

	// The executor needs to know which node it runs as, for lookups keyed
	// by node id.
	config["nodeId"] = node.ID

	executor, err := c.registry.CreateExecutor(ctx, node.Type, config, node.CredentialsID)
	if err != nil {
		return nil, err
	}

	return executor.Execute(ctx, executionCtx, logger)
}

func (c *Coordinator) finish(ctx context.Context, workflowID, executionID string, status models.ExecutionStatus, logger *slog.Logger) error {
	execution, err := c.store.UpdateExecution(ctx, executionID, func(e *models.Execution) error {
		e.Status = status

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to finish execution: %w", err)
	}

	c.publish(ctx, workflowID, events.ExecutionFinished{
		BaseEvent:  events.NewBaseEvent(events.ExecutionFinishedEvent, executionID, workflowID),
		Status:     string(status),
		TasksDone:  execution.TasksDone,
		TotalTasks: execution.TotalTasks,
	})

	logger.InfoContext(ctx, "Execution finished", "status", status, "tasks_done", execution.TasksDone)

	return nil
}

// publish broadcasts an event to live observers. Delivery is best effort;
// a failed publish never fails the execution.
func (c *Coordinator) publish(ctx context.Context, workflowID string, event eventbus.Event) {
	err := c.publisher.Publish(ctx, workflowID, event)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
