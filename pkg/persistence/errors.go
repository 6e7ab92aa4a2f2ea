package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrCredentialNotFound indicates a credential was not found by the given identifier.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrFormNotFound indicates no form exists for the given workflow node.
	ErrFormNotFound = errors.New("form not found")
)

// StoreError wraps store errors with the operation and record identity.
type StoreError struct {
	Op  string // Operation being performed (e.g. "ExecutionByID", "SaveWorkflow")
	ID  string // Record identifier if applicable
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a store error with context.
func NewStoreError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Err: err}
}

// IsNotFound checks whether an error indicates any missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrCredentialNotFound) ||
		errors.Is(err, ErrFormNotFound)
}
