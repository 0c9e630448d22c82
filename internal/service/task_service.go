package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/config"
	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/platform/logger"
	"github.com/phrazzld/tasklist-api/internal/service/ordering"
	"github.com/phrazzld/tasklist-api/internal/store"
)

// TaskCreate holds the client-supplied fields of a new task.
type TaskCreate struct {
	Title       string
	Description string
	Completed   bool
}

// TaskUpdate holds the fields replaced by UpdateTask. A nil Description
// leaves the stored description unchanged.
type TaskUpdate struct {
	Title       string
	Completed   bool
	Description *string
}

// TaskListCache caches pages of a user's task list.
// Implementations must treat every failure as a miss; the service never
// depends on the cache for correctness.
type TaskListCache interface {
	// Get returns a cached page and true, or nil and false on a miss.
	// It also returns the list generation observed by the lookup.
	Get(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Task, int64, bool)

	// Set stores a page read under generation gen. It must drop the page if
	// the list was invalidated after gen was observed.
	Set(ctx context.Context, userID uuid.UUID, gen int64, offset, limit int, tasks []*domain.Task)

	// Invalidate drops every cached page of the user's list and advances
	// its generation.
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// TaskService provides task-related operations
type TaskService interface {
	// CreateTask appends a new task to the end of the user's list.
	CreateTask(ctx context.Context, userID uuid.UUID, in TaskCreate) (*domain.Task, error)

	// ListTasks returns a page of the user's tasks ordered by position.
	// A negative skip is treated as 0 and limit is clamped to the configured
	// page sizes.
	ListTasks(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*domain.Task, error)

	// DeleteTask removes a task and closes the gap it leaves. It returns
	// false, with a nil error, if the user has no such task.
	DeleteTask(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error)

	// CompactTasks renumbers the user's positions to 0..N-1 keeping their order.
	CompactTasks(ctx context.Context, userID uuid.UUID) error

	// UpdateTaskTitle renames a task. Returns ErrTaskNotFound if the user
	// has no such task.
	UpdateTaskTitle(ctx context.Context, userID uuid.UUID, taskID int64, title string) (*domain.Task, error)

	// UpdateTask replaces the title, completion flag and optionally the
	// description of a task. Returns ErrTaskNotFound if the user has no
	// such task.
	UpdateTask(ctx context.Context, userID uuid.UUID, taskID int64, in TaskUpdate) (*domain.Task, error)

	// ReorderTasks moves tasks to the requested positions all-or-nothing.
	ReorderTasks(ctx context.Context, userID uuid.UUID, moves []ordering.Move) error
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks       store.TaskStore
	ledger      *ordering.Ledger
	coordinator *ordering.Coordinator
	cache       TaskListCache
	pages       config.TasksConfig
	logger      *slog.Logger
}

// NewTaskService creates a new TaskService.
// cache may be nil, which disables list caching.
// It returns an error if tasks is nil.
func NewTaskService(
	tasks store.TaskStore,
	cache TaskListCache,
	pages config.TasksConfig,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, fmt.Errorf("%w: tasks", ErrNilDependency)
	}

	if logger == nil {
		logger = slog.Default()
	}

	if pages.MaxPageSize <= 0 {
		pages.MaxPageSize = 100
	}
	if pages.DefaultPageSize <= 0 || pages.DefaultPageSize > pages.MaxPageSize {
		pages.DefaultPageSize = min(10, pages.MaxPageSize)
	}

	return &taskServiceImpl{
		tasks:       tasks,
		ledger:      ordering.NewLedger(logger),
		coordinator: ordering.NewCoordinator(logger),
		cache:       cache,
		pages:       pages,
		logger:      logger.With(slog.String("component", "task_service")),
	}, nil
}

func (s *taskServiceImpl) scope(userID uuid.UUID) ordering.Scope {
	return ordering.Scope{UserID: userID, Tasks: s.tasks}
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(ctx context.Context, userID uuid.UUID, in TaskCreate) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(userID, in.Title, in.Description, in.Completed)
	if err != nil {
		return nil, invalid(err)
	}

	if err := s.ledger.Append(ctx, s.scope(userID), task); err != nil {
		log.Error("failed to append task",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, s.wrap("create_task", "failed to save task", err)
	}

	s.invalidate(ctx, userID)
	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.Int("position", task.Position))
	return task, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context, userID uuid.UUID, skip, limit int) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	skip = max(skip, 0)
	switch {
	case limit <= 0:
		limit = s.pages.DefaultPageSize
	case limit > s.pages.MaxPageSize:
		limit = s.pages.MaxPageSize
	}

	// The generation is read before the store so a write that commits in
	// between makes the fill below a no-op.
	var gen int64
	if s.cache != nil {
		tasks, g, ok := s.cache.Get(ctx, userID, skip, limit)
		if ok {
			log.Debug("task list served from cache",
				slog.Int("skip", skip),
				slog.Int("limit", limit))
			return tasks, nil
		}
		gen = g
	}

	tasks, err := s.tasks.List(ctx, userID, skip, limit)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, gen, skip, limit, tasks)
	}
	return tasks, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID uuid.UUID, taskID int64) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	removed, err := s.ledger.RemoveAndCompact(ctx, s.scope(userID), taskID)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return false, s.wrap("delete_task", "failed to delete task", err)
	}
	if !removed {
		log.Debug("delete of unknown task ignored", slog.Int64("task_id", taskID))
		return false, nil
	}

	s.invalidate(ctx, userID)
	log.Info("task deleted", slog.Int64("task_id", taskID))
	return true, nil
}

// CompactTasks implements TaskService.CompactTasks
func (s *taskServiceImpl) CompactTasks(ctx context.Context, userID uuid.UUID) error {
	if err := s.ledger.Compact(ctx, s.scope(userID)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to compact tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return s.wrap("compact_tasks", "failed to compact tasks", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// UpdateTaskTitle implements TaskService.UpdateTaskTitle
func (s *taskServiceImpl) UpdateTaskTitle(
	ctx context.Context,
	userID uuid.UUID,
	taskID int64,
	title string,
) (*domain.Task, error) {
	return s.update(ctx, "update_task_title", userID, taskID, func(t *domain.Task) error {
		return t.Rename(title)
	})
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	userID uuid.UUID,
	taskID int64,
	in TaskUpdate,
) (*domain.Task, error) {
	return s.update(ctx, "update_task", userID, taskID, func(t *domain.Task) error {
		if err := t.Rename(in.Title); err != nil {
			return err
		}
		t.Completed = in.Completed
		if in.Description != nil {
			t.Description = *in.Description
		}
		return nil
	})
}

// update reads the task, applies edit and writes it back with a version
// check, all in one transaction. The position is never touched.
func (s *taskServiceImpl) update(
	ctx context.Context,
	op string,
	userID uuid.UUID,
	taskID int64,
	edit func(*domain.Task) error,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Task
	err := s.tasks.InTx(ctx, func(ctx context.Context, tx store.TaskStore) error {
		task, err := tx.GetByID(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if err := edit(task); err != nil {
			return invalid(err)
		}
		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, store.ErrTaskNotFound):
		log.Debug("update of unknown task", slog.Int64("task_id", taskID))
		return nil, ErrTaskNotFound
	case store.IsConflictError(err):
		log.Warn("task update lost a concurrent write",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return nil, &TaskConflictError{TaskID: taskID, Err: err}
	default:
		if !errors.Is(err, domain.ErrValidation) {
			log.Error("failed to update task",
				slog.String("error", err.Error()),
				slog.Int64("task_id", taskID))
		}
		return nil, s.wrap(op, "failed to update task", err)
	}

	s.invalidate(ctx, userID)
	log.Info("task updated", slog.Int64("task_id", taskID))
	return updated, nil
}

// ReorderTasks implements TaskService.ReorderTasks
func (s *taskServiceImpl) ReorderTasks(ctx context.Context, userID uuid.UUID, moves []ordering.Move) error {
	if err := s.coordinator.Reorder(ctx, s.scope(userID), moves); err != nil {
		return s.wrap("reorder_tasks", "failed to reorder tasks", err)
	}
	if len(moves) > 0 {
		s.invalidate(ctx, userID)
	}
	return nil
}

func (s *taskServiceImpl) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

// wrap returns expected failures unchanged so callers see the typed error
// first, and wraps everything else in a TaskServiceError.
func (s *taskServiceImpl) wrap(op, message string, err error) error {
	if isExpected(err) {
		return err
	}
	return NewTaskServiceError(op, message, err)
}

func isExpected(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, store.ErrTaskNotFound) ||
		errors.Is(err, ordering.ErrMissingTasks) ||
		errors.Is(err, ordering.ErrTaskNotFound) ||
		errors.Is(err, ordering.ErrDataConflict) ||
		errors.Is(err, ordering.ErrDuplicateTasks) ||
		errors.Is(err, ordering.ErrInvalidOrdering)
}

// invalid marks a domain validation failure so the API layer reports 400.
func invalid(err error) error {
	return domain.NewValidationError("", err.Error(), fmt.Errorf("%w: %w", domain.ErrValidation, err))
}
