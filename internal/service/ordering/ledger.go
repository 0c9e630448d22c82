package ordering

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/platform/logger"
	"github.com/phrazzld/tasklist-api/internal/store"
)

// Ledger maintains dense task positions for a user.
type Ledger struct {
	logger *slog.Logger
}

// NewLedger creates a Ledger. If log is nil, the default logger is used.
func NewLedger(log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{logger: log.With(slog.String("component", "position_ledger"))}
}

// Append stores task at the tail of the user's list. The task's UserID is
// set from scope and its Position is the user's current task count.
//
// Two appends racing for the same tail fail at commit; the loser gets a
// DataConflictError.
func (l *Ledger) Append(ctx context.Context, scope Scope, task *domain.Task) error {
	task.UserID = scope.UserID

	err := scope.Tasks.InTx(ctx, func(ctx context.Context, tx store.TaskStore) error {
		n, err := tx.Count(ctx, scope.UserID)
		if err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}
		task.Position = n
		return tx.Create(ctx, task)
	})
	if err != nil {
		return l.conflictOr(ctx, err, "another request modified the task list while appending")
	}

	logger.FromContextOrDefault(ctx, l.logger).Debug("task appended",
		slog.Int64("task_id", task.ID),
		slog.Int("position", task.Position))
	return nil
}

// Compact renumbers the user's tasks to 0..N-1, keeping their current
// order, and persists only the tasks whose position changed. A list that
// is already dense is left untouched.
func (l *Ledger) Compact(ctx context.Context, scope Scope) error {
	err := scope.Tasks.InTx(ctx, func(ctx context.Context, tx store.TaskStore) error {
		return l.compact(ctx, scope, tx)
	})
	if err != nil {
		return l.conflictOr(ctx, err, "another request modified the task list while compacting")
	}
	return nil
}

// Remove deletes one of the user's tasks. It reports false, with a nil
// error, when the user has no such task. It does not compact.
func (l *Ledger) Remove(ctx context.Context, scope Scope, taskID int64) (bool, error) {
	var removed bool
	err := scope.Tasks.InTx(ctx, func(ctx context.Context, tx store.TaskStore) error {
		var err error
		removed, err = remove(ctx, scope, tx, taskID)
		return err
	})
	if err != nil {
		return false, l.conflictOr(ctx, err, "another request modified the task list while deleting")
	}
	return removed, nil
}

// RemoveAndCompact deletes one of the user's tasks and compacts the
// remaining list in the same transaction. Nothing is written when the task
// does not exist.
func (l *Ledger) RemoveAndCompact(ctx context.Context, scope Scope, taskID int64) (bool, error) {
	var removed bool
	err := scope.Tasks.InTx(ctx, func(ctx context.Context, tx store.TaskStore) error {
		var err error
		removed, err = remove(ctx, scope, tx, taskID)
		if err != nil || !removed {
			return err
		}
		return l.compact(ctx, scope, tx)
	})
	if err != nil {
		return false, l.conflictOr(ctx, err, "another request modified the task list while deleting")
	}

	if removed {
		logger.FromContextOrDefault(ctx, l.logger).Debug("task removed and list compacted",
			slog.Int64("task_id", taskID))
	}
	return removed, nil
}

func (l *Ledger) compact(ctx context.Context, scope Scope, tx store.TaskStore) error {
	tasks, err := tx.ListAll(ctx, scope.UserID)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	changed := domain.CompactPositions(tasks)
	for _, t := range changed {
		if err := tx.Update(ctx, t); err != nil {
			return fmt.Errorf("failed to move task %d to position %d: %w", t.ID, t.Position, err)
		}
	}

	if len(changed) > 0 {
		logger.FromContextOrDefault(ctx, l.logger).Debug("task list compacted",
			slog.Int("total", len(tasks)),
			slog.Int("moved", len(changed)))
	}
	return nil
}

func remove(ctx context.Context, scope Scope, tx store.TaskStore, taskID int64) (bool, error) {
	err := tx.Delete(ctx, scope.UserID, taskID)
	if store.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete task %d: %w", taskID, err)
	}
	return true, nil
}

// conflictOr converts a store conflict into a DataConflictError and returns
// any other error unchanged.
func (l *Ledger) conflictOr(ctx context.Context, err error, message string) error {
	if !store.IsConflictError(err) {
		return err
	}
	logger.FromContextOrDefault(ctx, l.logger).Warn("position update lost a concurrent write",
		slog.String("error", err.Error()))
	return &DataConflictError{Message: message, Err: err}
}
