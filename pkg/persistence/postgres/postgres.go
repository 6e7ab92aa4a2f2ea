// Package postgres provides the PostgreSQL persistence implementation used
// by multi-worker deployments. Execution updates run inside a transaction
// with a row lock, which is what makes UpdateExecution atomic across
// competing worker instances.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
)

type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Persistence{
		db:     database,
		logger: logger.With("module", "postgres_persistence"),
	}

	err = p.createTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.InfoContext(ctx, "PostgreSQL persistence initialized")

	return p, nil
}

func (p *Persistence) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			document JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			document JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_workflow_id ON executions (workflow_id)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			document JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS forms (
			workflow_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			document JSONB NOT NULL,
			PRIMARY KEY (workflow_id, node_id)
		)`,
	}

	for _, statement := range statements {
		_, err := p.db.ExecContext(ctx, statement)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := p.queryDocument(ctx,
		`SELECT document FROM workflows WHERE id = $1`,
		&workflow, persistence.ErrWorkflowNotFound, id)
	if err != nil {
		return nil, persistence.NewStoreError("WorkflowByID", id, err)
	}

	return &workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	document, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO workflows (id, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()
	`, workflow.ID, document)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	var execution models.Execution

	err := p.queryDocument(ctx,
		`SELECT document FROM executions WHERE id = $1`,
		&execution, persistence.ErrExecutionNotFound, id)
	if err != nil {
		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	return &execution, nil
}

func (p *Persistence) CreateExecution(ctx context.Context, execution *models.Execution) error {
	document, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, document)
		VALUES ($1, $2, $3)
	`, execution.ID, execution.WorkflowID, document)
	if err != nil {
		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (p *Persistence) UpdateExecution(ctx context.Context, id string, mutate func(*models.Execution) error) (*models.Execution, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var document []byte

	err = tx.QueryRowContext(ctx,
		`SELECT document FROM executions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("UpdateExecution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	var execution models.Execution

	err = json.Unmarshal(document, &execution)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	err = mutate(&execution)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	execution.UpdatedAt = time.Now().UTC()

	updated, err := json.Marshal(&execution)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE executions SET document = $2, updated_at = now() WHERE id = $1`,
		id, updated)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, persistence.NewStoreError("UpdateExecution", id, err)
	}

	return &execution, nil
}

func (p *Persistence) CredentialByID(ctx context.Context, id string) (*models.Credential, error) {
	var credential models.Credential

	err := p.queryDocument(ctx,
		`SELECT document FROM credentials WHERE id = $1`,
		&credential, persistence.ErrCredentialNotFound, id)
	if err != nil {
		return nil, persistence.NewStoreError("CredentialByID", id, err)
	}

	return &credential, nil
}

func (p *Persistence) SaveCredential(ctx context.Context, credential *models.Credential) error {
	document, err := json.Marshal(credential)
	if err != nil {
		return persistence.NewStoreError("SaveCredential", credential.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO credentials (id, document)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document
	`, credential.ID, document)
	if err != nil {
		return persistence.NewStoreError("SaveCredential", credential.ID, err)
	}

	return nil
}

func (p *Persistence) FormByWorkflowAndNode(ctx context.Context, workflowID, nodeID string) (*models.Form, error) {
	var form models.Form

	err := p.queryDocument(ctx,
		`SELECT document FROM forms WHERE workflow_id = $1 AND node_id = $2`,
		&form, persistence.ErrFormNotFound, workflowID, nodeID)
	if err != nil {
		return nil, persistence.NewStoreError("FormByWorkflowAndNode", workflowID+"/"+nodeID, err)
	}

	return &form, nil
}

func (p *Persistence) SaveForm(ctx context.Context, form *models.Form) error {
	document, err := json.Marshal(form)
	if err != nil {
		return persistence.NewStoreError("SaveForm", form.ID, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO forms (workflow_id, node_id, document)
		VALUES ($1, $2, $3)
		ON CONFLICT (workflow_id, node_id) DO UPDATE SET document = EXCLUDED.document
	`, form.WorkflowID, form.NodeID, document)
	if err != nil {
		return persistence.NewStoreError("SaveForm", form.ID, err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}

func (p *Persistence) queryDocument(ctx context.Context, query string, v any, notFound error, args ...any) error {
	var document []byte

	err := p.db.QueryRowContext(ctx, query, args...).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}

		return err
	}

	return json.Unmarshal(document, v)
}
