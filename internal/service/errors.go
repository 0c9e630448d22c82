// Package service provides application-level services for managing tasks.
package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/tasklist-api/internal/service/ordering"
	"github.com/phrazzld/tasklist-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in TaskServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrTaskNotFound indicates the user has no task with the requested ID.
	// It is the store sentinel, so errors.Is matches either name.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = store.ErrTaskNotFound

	// ErrNilDependency is returned by constructors given a nil collaborator.
	ErrNilDependency = errors.New("required dependency is nil")
)

// TaskConflictError is returned when an edit of a single task loses its
// version check to a concurrent write. It matches ordering.ErrDataConflict,
// so callers handle it like a conflicting reorder.
type TaskConflictError struct {
	TaskID int64
	Err    error
}

// Error implements the error interface for TaskConflictError.
func (e *TaskConflictError) Error() string {
	return fmt.Sprintf("Task %d was modified by another request; reload and try again", e.TaskID)
}

// Unwrap returns the store error that reported the lost race.
func (e *TaskConflictError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ordering.ErrDataConflict.
func (e *TaskConflictError) Is(target error) bool {
	return target == ordering.ErrDataConflict
}

// TaskServiceError wraps a failure of a TaskService operation.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
