package ordering

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/platform/logger"
	"github.com/phrazzld/tasklist-api/internal/store"
)

// Coordinator applies client-requested reorderings of a user's task list.
type Coordinator struct {
	logger *slog.Logger
}

// NewCoordinator creates a Coordinator. If log is nil, the default logger is used.
func NewCoordinator(log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{logger: log.With(slog.String("component", "reorder_coordinator"))}
}

// Reorder moves each named task to its requested position. Tasks not named
// keep their positions, so the request must describe a complete permutation
// of whatever it touches: after applying it the user's positions must still
// be exactly 0..N-1.
//
// The request is all-or-nothing. It fails with DuplicateTasksError or
// InvalidOrderingError before touching the store, MissingTasksError if any
// task is not the user's, InvalidOrderingError if the result would not be
// dense, and DataConflictError if a concurrent write won. An empty request
// succeeds without doing anything.
func (c *Coordinator) Reorder(ctx context.Context, scope Scope, moves []Move) error {
	if len(moves) == 0 {
		return nil
	}

	log := logger.FromContextOrDefault(ctx, c.logger)

	if err := validateMoves(moves); err != nil {
		log.Debug("reorder request rejected", slog.String("reason", err.Error()))
		return err
	}

	var moved int
	err := scope.Tasks.InTx(ctx, func(ctx context.Context, tx store.TaskStore) error {
		tasks, err := tx.ListAll(ctx, scope.UserID)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		byID := make(map[int64]*domain.Task, len(tasks))
		original := make(map[int64]int, len(tasks))
		for _, t := range tasks {
			byID[t.ID] = t
			original[t.ID] = t.Position
		}

		var missing []int64
		for _, m := range moves {
			if _, ok := byID[m.TaskID]; !ok {
				missing = append(missing, m.TaskID)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return &MissingTasksError{TaskIDs: missing}
		}

		for _, m := range moves {
			t, ok := byID[m.TaskID]
			if !ok {
				// Unreachable: every ID was resolved above.
				return &TaskNotFoundError{TaskID: m.TaskID}
			}
			t.Position = m.Position
		}

		if err := domain.ValidateDense(tasks); err != nil {
			return &InvalidOrderingError{Message: err.Error()}
		}

		// Writing in ID order keeps concurrent reorders from deadlocking.
		changed := make([]*domain.Task, 0, len(moves))
		for _, t := range tasks {
			if t.Position != original[t.ID] {
				changed = append(changed, t)
			}
		}
		slices.SortFunc(changed, func(a, b *domain.Task) int {
			switch {
			case a.ID < b.ID:
				return -1
			case a.ID > b.ID:
				return 1
			}
			return 0
		})

		for _, t := range changed {
			if err := tx.Update(ctx, t); err != nil {
				return fmt.Errorf("failed to move task %d to position %d: %w", t.ID, t.Position, err)
			}
		}
		moved = len(changed)
		return nil
	})
	if err != nil {
		if store.IsConflictError(err) {
			log.Warn("reorder lost a concurrent write",
				slog.String("error", err.Error()),
				slog.Int("requested", len(moves)))
			return &DataConflictError{
				Message: "the task list was modified by another request; reload and try again",
				Err:     err,
			}
		}
		return err
	}

	log.Info("tasks reordered",
		slog.Int("requested", len(moves)),
		slog.Int("moved", moved))
	return nil
}

func validateMoves(moves []Move) error {
	seen := make(map[int64]bool, len(moves))
	var dups []int64
	for _, m := range moves {
		if seen[m.TaskID] && !slices.Contains(dups, m.TaskID) {
			dups = append(dups, m.TaskID)
		}
		seen[m.TaskID] = true
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return &DuplicateTasksError{TaskIDs: dups}
	}

	for _, m := range moves {
		if m.Position < 0 {
			return &InvalidOrderingError{
				Message: fmt.Sprintf("position %d for task %d is negative", m.Position, m.TaskID),
			}
		}
	}
	return nil
}
