// Package mocks provides shared test doubles for the store and event bus.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/weftlabs/weft/pkg/models"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockPersistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockPersistence) CreateExecution(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockPersistence) UpdateExecution(ctx context.Context, id string, mutate func(*models.Execution) error) (*models.Execution, error) {
	args := m.Called(ctx, id, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockPersistence) CredentialByID(ctx context.Context, id string) (*models.Credential, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Credential), args.Error(1)
}

func (m *MockPersistence) SaveCredential(ctx context.Context, credential *models.Credential) error {
	args := m.Called(ctx, credential)

	return args.Error(0)
}

func (m *MockPersistence) FormByWorkflowAndNode(ctx context.Context, workflowID, nodeID string) (*models.Form, error) {
	args := m.Called(ctx, workflowID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Form), args.Error(1)
}

func (m *MockPersistence) SaveForm(ctx context.Context, form *models.Form) error {
	args := m.Called(ctx, form)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
