package file_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/models"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/persistence/file"
)

func newStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func sampleWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:          "wf-1",
		Title:       "sample workflow",
		Enabled:     true,
		TriggerType: models.TriggerTypeManual,
		Nodes: map[string]*models.Node{
			"a": {ID: "a", Type: models.NodeTypeTelegram, Config: map[string]any{"message": "hi"}},
		},
		Connections: map[string][]string{},
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	wf := sampleWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, wf))

	loaded, err := store.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)

	assert.Equal(t, wf.ID, loaded.ID)
	assert.Equal(t, wf.Title, loaded.Title)
	assert.Equal(t, "hi", loaded.Nodes["a"].Config["message"])
}

func TestWorkflowNotFound(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	_, err := store.WorkflowByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, persistence.ErrWorkflowNotFound))
	assert.True(t, persistence.IsNotFound(err))
}

func TestExecutionLifecycle(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	execution := models.NewExecution("exec-1", sampleWorkflow(), map[string]any{"k": "v"})
	require.NoError(t, store.CreateExecution(ctx, execution))

	updated, err := store.UpdateExecution(ctx, "exec-1", func(e *models.Execution) error {
		e.Status = models.ExecutionStatusRunning
		e.TasksDone = 1
		e.Logs["a"] = "Success"

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, updated.Status)

	loaded, err := store.ExecutionByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
	assert.Equal(t, 1, loaded.TasksDone)
	assert.Equal(t, "Success", loaded.Logs["a"])
	assert.False(t, loaded.UpdatedAt.Before(loaded.CreatedAt))
}

func TestUpdateExecutionMutateErrorLeavesRecordUntouched(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	execution := models.NewExecution("exec-1", sampleWorkflow(), nil)
	require.NoError(t, store.CreateExecution(ctx, execution))

	_, err := store.UpdateExecution(ctx, "exec-1", func(*models.Execution) error {
		return errors.New("refuse")
	})
	require.Error(t, err)

	loaded, err := store.ExecutionByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, loaded.Status)
}

func TestUpdateExecutionMissing(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	_, err := store.UpdateExecution(context.Background(), "missing", func(*models.Execution) error {
		return nil
	})

	assert.True(t, errors.Is(err, persistence.ErrExecutionNotFound))
}

func TestUpdateExecutionConcurrentIncrements(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	execution := models.NewExecution("exec-1", sampleWorkflow(), nil)
	execution.TotalTasks = 50
	require.NoError(t, store.CreateExecution(ctx, execution))

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := store.UpdateExecution(ctx, "exec-1", func(e *models.Execution) error {
				e.TasksDone++

				return nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	loaded, err := store.ExecutionByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, 50, loaded.TasksDone)
}

func TestCredentialRoundTrip(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	credential := &models.Credential{
		ID:       "cred-1",
		Title:    "bot token",
		Platform: "telegram",
		Data:     json.RawMessage(`{"botToken":"t","chatId":"c"}`),
	}
	require.NoError(t, store.SaveCredential(ctx, credential))

	loaded, err := store.CredentialByID(ctx, "cred-1")
	require.NoError(t, err)

	var data map[string]string

	require.NoError(t, loaded.DecodeData(&data))
	assert.Equal(t, "t", data["botToken"])

	_, err = store.CredentialByID(ctx, "missing")
	assert.True(t, errors.Is(err, persistence.ErrCredentialNotFound))
}

func TestFormLookupByWorkflowAndNode(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()

	form := &models.Form{
		ID:         "form-1",
		WorkflowID: "wf-1",
		NodeID:     "a",
		Title:      "signup",
		IsActive:   true,
	}
	require.NoError(t, store.SaveForm(ctx, form))

	loaded, err := store.FormByWorkflowAndNode(ctx, "wf-1", "a")
	require.NoError(t, err)
	assert.Equal(t, "form-1", loaded.ID)

	_, err = store.FormByWorkflowAndNode(ctx, "wf-1", "other")
	assert.True(t, errors.Is(err, persistence.ErrFormNotFound))
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	assert.NoError(t, store.HealthCheck(context.Background()))

	missing := file.NewPersistence("/nonexistent/weft-test")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
