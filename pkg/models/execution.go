package models

import "time"

// ExecutionStatus is the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "PENDING"
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed  ExecutionStatus = "FAILED"
)

// ExecutionOutput holds the data that seeded the run.
type ExecutionOutput struct {
	TriggerPayload map[string]any `json:"triggerPayload"`
}

// Execution is one run instance of a workflow.
//
// TasksDone never exceeds TotalTasks and only grows; Logs keys are node ids
// and each node writes its outcome at most once per execution.
type Execution struct {
	ID         string            `json:"id"`
	WorkflowID string            `json:"workflowId"`
	Status     ExecutionStatus   `json:"status"`
	TotalTasks int               `json:"totalTasks"`
	TasksDone  int               `json:"tasksDone"`
	Output     ExecutionOutput   `json:"output"`
	Logs       map[string]string `json:"logs"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// NewExecution creates a pending execution for a workflow.
func NewExecution(id string, workflow *Workflow, triggerPayload map[string]any) *Execution {
	if triggerPayload == nil {
		triggerPayload = make(map[string]any)
	}

	now := time.Now().UTC()

	return &Execution{
		ID:         id,
		WorkflowID: workflow.ID,
		Status:     ExecutionStatusPending,
		TotalTasks: workflow.TotalTasks(),
		Output:     ExecutionOutput{TriggerPayload: triggerPayload},
		Logs:       make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Terminal reports whether the execution reached a final state.
func (e *Execution) Terminal() bool {
	return e.Status == ExecutionStatusSuccess || e.Status == ExecutionStatusFailed
}

// ExecutionContext is the transient, in-memory state passed between nodes
// during one execution. Trigger is readable as $json.body and Nodes as
// $node.<id> in templated node configuration.
type ExecutionContext struct {
	ExecutionID string
	WorkflowID  string
	Trigger     map[string]any
	Nodes       map[string]map[string]any
}

// NewExecutionContext seeds a context from the execution's trigger payload.
func NewExecutionContext(execution *Execution) *ExecutionContext {
	trigger := execution.Output.TriggerPayload
	if trigger == nil {
		trigger = make(map[string]any)
	}

	return &ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		Trigger:     trigger,
		Nodes:       make(map[string]map[string]any),
	}
}
