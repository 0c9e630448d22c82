package ordering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	// ErrMissingTasks is returned when a reorder names tasks the user does not own.
	ErrMissingTasks = errors.New("some tasks not found")

	// ErrTaskNotFound is returned when a single task could not be resolved.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDataConflict is returned when a concurrent write invalidated the operation.
	ErrDataConflict = errors.New("data conflict")

	// ErrDuplicateTasks is returned when a reorder names the same task twice.
	ErrDuplicateTasks = errors.New("duplicate tasks in request")

	// ErrInvalidOrdering is returned when a reorder would leave the list non-dense.
	ErrInvalidOrdering = errors.New("invalid ordering")
)

// MissingTasksError lists every requested task ID the user does not own,
// in ascending order.
type MissingTasksError struct {
	TaskIDs []int64
}

func (e *MissingTasksError) Error() string {
	return "Some tasks not found: " + joinIDs(e.TaskIDs)
}

// Is reports whether target is ErrMissingTasks.
func (e *MissingTasksError) Is(target error) bool { return target == ErrMissingTasks }

// TaskNotFoundError names a single task that could not be resolved.
type TaskNotFoundError struct {
	TaskID int64
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("Task with id %d not found", e.TaskID)
}

// Is reports whether target is ErrTaskNotFound.
func (e *TaskNotFoundError) Is(target error) bool { return target == ErrTaskNotFound }

// DataConflictError reports that the operation lost a race with another
// writer. Nothing from the attempt was persisted.
type DataConflictError struct {
	Message string
	Err     error
}

func (e *DataConflictError) Error() string {
	return "Data conflict error: " + e.Message
}

// Is reports whether target is ErrDataConflict.
func (e *DataConflictError) Is(target error) bool { return target == ErrDataConflict }

// Unwrap returns the store error that triggered the conflict.
func (e *DataConflictError) Unwrap() error { return e.Err }

// DuplicateTasksError lists task IDs that appear more than once in a request.
type DuplicateTasksError struct {
	TaskIDs []int64
}

func (e *DuplicateTasksError) Error() string {
	return "Duplicate tasks in request: " + joinIDs(e.TaskIDs)
}

// Is reports whether target is ErrDuplicateTasks.
func (e *DuplicateTasksError) Is(target error) bool { return target == ErrDuplicateTasks }

// InvalidOrderingError describes why a requested ordering was rejected.
type InvalidOrderingError struct {
	Message string
}

func (e *InvalidOrderingError) Error() string {
	return "Invalid ordering: " + e.Message
}

// Is reports whether target is ErrInvalidOrdering.
func (e *InvalidOrderingError) Is(target error) bool { return target == ErrInvalidOrdering }

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
