package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
//
// Every method is scoped to a single owner: a task that belongs to another
// user is indistinguishable from one that does not exist.
//
// Implementations must provide optimistic concurrency on Update: the write
// succeeds only if the stored row still carries task.Version, and fails with
// ErrConflict otherwise. Uniqueness of (user, position) is checked when the
// enclosing transaction commits, so positions may collide transiently while
// a list is being rewritten.
type TaskStore interface {
	// Create inserts a new task. The store assigns ID and Version (1); the
	// caller is responsible for choosing Position.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves one of the user's tasks.
	// Returns ErrTaskNotFound if the user has no task with that ID.
	GetByID(ctx context.Context, userID uuid.UUID, id int64) (*domain.Task, error)

	// List returns a page of the user's tasks ordered by position, then ID.
	// Returns an empty slice if the page is empty.
	List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Task, error)

	// ListAll returns every task the user owns, ordered by position, then ID.
	ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// Count returns the number of tasks the user owns.
	Count(ctx context.Context, userID uuid.UUID) (int, error)

	// Update persists title, description, completion and position of an
	// existing task. On success task.Version is incremented to match the
	// stored row. Returns ErrConflict if the stored version differs from
	// task.Version or the row no longer exists.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes one of the user's tasks.
	// Returns ErrTaskNotFound if the user has no task with that ID.
	Delete(ctx context.Context, userID uuid.UUID, id int64) error

	// InTx runs fn against a TaskStore bound to a single transaction.
	// The transaction commits if fn returns nil and rolls back otherwise.
	// Calling InTx on a store that is already transactional runs fn in the
	// same transaction.
	//
	// Usage example:
	//   err := tasks.InTx(ctx, func(ctx context.Context, tx store.TaskStore) error {
	//       all, err := tx.ListAll(ctx, userID)
	//       ...
	//       return tx.Update(ctx, task)
	//   })
	InTx(ctx context.Context, fn func(ctx context.Context, tx TaskStore) error) error
}
