// Package web provides the HTTP trigger surface: webhook and manual run
// endpoints that submit executions to the work queue, plus execution lookup.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/queue"
)

type APIHandlers struct {
	store    persistence.Persistence
	queue    *queue.Queue
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAPIHandlers(
	store persistence.Persistence,
	q *queue.Queue,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		store:    store,
		queue:    q,
		validate: validate,
		logger:   logger.With("module", "web"),
	}
}

// TriggerWebhook handles inbound webhook calls for a workflow. The workflow
// must be enabled and webhook-triggered; when the webhook declares a method
// or secret, both are enforced before anything is queued.
func (h *APIHandlers) TriggerWebhook(c fiber.Ctx) error {
	workflow, err := h.store.WorkflowByID(c.Context(), c.Params("workflowId"))
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	if workflow.TriggerType != models.TriggerTypeWebhook {
		return badRequest(c, "workflow is not webhook-triggered")
	}

	if workflow.Webhook != nil {
		if workflow.Webhook.Method != "" && !strings.EqualFold(workflow.Webhook.Method, c.Method()) {
			return methodNotAllowed(c, "webhook does not accept "+c.Method())
		}

		if workflow.Webhook.Secret != "" && c.Get("Authorization") != workflow.Webhook.Secret {
			return unauthorized(c, "invalid webhook secret")
		}
	}

	payload, err := parsePayload(c.Body())
	if err != nil {
		return badRequest(c, "request body must be a JSON object")
	}

	return h.submit(c, workflow, payload)
}

// RunWorkflow starts a manual execution of a workflow.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	workflow, err := h.store.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	payload, err := parsePayload(c.Body())
	if err != nil {
		return badRequest(c, "request body must be a JSON object")
	}

	return h.submit(c, workflow, payload)
}

// submit creates a pending execution and enqueues it. The execution record
// is persisted before the queue write, so a worker can always load what it
// claims.
func (h *APIHandlers) submit(c fiber.Ctx, workflow *models.Workflow, payload map[string]any) error {
	if !workflow.Enabled {
		return badRequest(c, "workflow is disabled")
	}

	err := h.validate.Struct(workflow)
	if err != nil {
		return unprocessable(c, "stored workflow definition is invalid: "+err.Error())
	}

	execution := models.NewExecution(uuid.NewString(), workflow, payload)

	err = h.store.CreateExecution(c.Context(), execution)
	if err != nil {
		return internalError(c, err)
	}

	err = h.queue.Enqueue(c.Context(), execution.ID, workflow.ID, payload)
	if err != nil {
		return internalError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Execution submitted",
		"execution_id", execution.ID,
		"workflow_id", workflow.ID,
		"trigger_type", workflow.TriggerType,
	)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":     "Workflow execution started",
		"executionId": execution.ID,
	})
}

// GetExecution returns the stored state of one execution.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.store.ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, persistence.ErrExecutionNotFound) {
			return notFound(c, "execution not found")
		}

		return internalError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.store.HealthCheck(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func parsePayload(body []byte) (map[string]any, error) {
	payload := make(map[string]any)

	if len(body) == 0 {
		return payload, nil
	}

	err := json.Unmarshal(body, &payload)
	if err != nil {
		return nil, err
	}

	return payload, nil
}
