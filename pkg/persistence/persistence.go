// Package persistence provides the storage abstraction for workflow,
// execution, credential and form records.
package persistence

import (
	"context"

	"github.com/weftlabs/weft/pkg/models"
)

// Persistence is the store contract shared by all worker and API instances.
// Every method must be safe under concurrent invocation across processes;
// the engine only ever needs atomic single-record operations.
type Persistence interface {
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error

	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	CreateExecution(ctx context.Context, execution *models.Execution) error
	// UpdateExecution applies mutate to the stored record under a
	// read-modify-write cycle that is atomic per execution id.
	UpdateExecution(ctx context.Context, id string, mutate func(*models.Execution) error) (*models.Execution, error)

	CredentialByID(ctx context.Context, id string) (*models.Credential, error)
	SaveCredential(ctx context.Context, credential *models.Credential) error

	FormByWorkflowAndNode(ctx context.Context, workflowID, nodeID string) (*models.Form, error)
	SaveForm(ctx context.Context, form *models.Form) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
