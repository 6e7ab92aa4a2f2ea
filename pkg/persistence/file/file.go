// Package file provides a file-based persistence implementation for
// development and tests. Records are stored as one JSON document per file.
// The read-modify-write guarantee on executions is process-local, so this
// store is for single-process setups only; multi-worker deployments use the
// postgres store.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
)

type Persistence struct {
	root string
	mu   sync.Mutex
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := p.read(p.path("workflows", id), &workflow, persistence.ErrWorkflowNotFound)
	if err != nil {
		return nil, persistence.NewStoreError("WorkflowByID", id, err)
	}

	return &workflow, nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	err := p.write(p.path("workflows", workflow.ID), workflow)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	var execution models.Execution

	err := p.read(p.path("executions", id), &execution, persistence.ErrExecutionNotFound)
	if err != nil {
		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	return &execution, nil
}

func (p *Persistence) CreateExecution(_ context.Context, execution *models.Execution) error {
	err := p.write(p.path("executions", execution.ID), execution)
	if err != nil {
		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (p *Persistence) UpdateExecution(_ context.Context, id string, mutate func(*models.Execution) error) (*models.Execution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var execution models.Execution

	path := p.path("executions", id)

	err := p.read(path, &execution, persistence.ErrExecutionNotFound)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	err = mutate(&execution)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	execution.UpdatedAt = time.Now().UTC()

	err = p.write(path, &execution)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	return &execution, nil
}

func (p *Persistence) CredentialByID(_ context.Context, id string) (*models.Credential, error) {
	var credential models.Credential

	err := p.read(p.path("credentials", id), &credential, persistence.ErrCredentialNotFound)
	if err != nil {
		return nil, persistence.NewStoreError("CredentialByID", id, err)
	}

	return &credential, nil
}

func (p *Persistence) SaveCredential(_ context.Context, credential *models.Credential) error {
	err := p.write(p.path("credentials", credential.ID), credential)
	if err != nil {
		return persistence.NewStoreError("SaveCredential", credential.ID, err)
	}

	return nil
}

func (p *Persistence) FormByWorkflowAndNode(_ context.Context, workflowID, nodeID string) (*models.Form, error) {
	var form models.Form

	key := workflowID + "__" + nodeID

	err := p.read(p.path("forms", key), &form, persistence.ErrFormNotFound)
	if err != nil {
		return nil, persistence.NewStoreError("FormByWorkflowAndNode", key, err)
	}

	return &form, nil
}

func (p *Persistence) SaveForm(_ context.Context, form *models.Form) error {
	err := p.write(p.path("forms", form.WorkflowID+"__"+form.NodeID), form)
	if err != nil {
		return persistence.NewStoreError("SaveForm", form.ID, err)
	}

	return nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	_, err := os.Stat(p.root)
	if os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return err
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) path(kind, id string) string {
	return filepath.Join(p.root, kind, id+".json")
}

func (p *Persistence) read(path string, v any, notFound error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound
		}

		return err
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("corrupt record at %s: %w", path, err)
	}

	return nil
}

func (p *Persistence) write(path string, v any) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
