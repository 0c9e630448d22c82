package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/store"
)

// InMemoryTaskStore implements store.TaskStore in memory with the same
// optimistic-concurrency rules as the PostgreSQL store:
//
//   - Update succeeds only if the row still carries the caller's version.
//   - Per-user position uniqueness is checked when a transaction commits.
//   - A transaction fails at commit with store.ErrConflict if any row it
//     wrote was changed by someone else after the transaction began.
//
// Transactions read from a snapshot taken at InTx and stage their writes
// until commit. It is safe for concurrent use.
type InMemoryTaskStore struct {
	mu     sync.Mutex
	rows   map[int64]*domain.Task
	nextID int64

	// BeforeCommit, when set, runs after an InTx body returns nil and before
	// its writes are checked and applied. Tests use it to interleave a
	// competing writer. Auto-committed single operations do not trigger it.
	BeforeCommit func()
}

var _ store.TaskStore = (*InMemoryTaskStore)(nil)

// NewInMemoryTaskStore creates an empty store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{rows: make(map[int64]*domain.Task)}
}

// Seed stores copies of tasks as committed rows without any checks, so tests
// can also build lists that break the density invariant. Zero IDs are
// assigned and zero versions become 1; the caller's structs are updated.
func (s *InMemoryTaskStore) Seed(tasks ...*domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		if t.ID == 0 {
			s.nextID++
			t.ID = s.nextID
		} else if t.ID > s.nextID {
			s.nextID = t.ID
		}
		if t.Version == 0 {
			t.Version = 1
		}
		s.rows[t.ID] = t.Clone()
	}
}

// Snapshot returns copies of the user's committed tasks ordered by position, then ID.
func (s *InMemoryTaskStore) Snapshot(userID uuid.UUID) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return userTasks(s.rows, userID)
}

// InTx implements store.TaskStore.InTx.
func (s *InMemoryTaskStore) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx store.TaskStore) error,
) error {
	return s.run(ctx, fn, true)
}

// Create implements store.TaskStore.Create.
func (s *InMemoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	return s.run(ctx, func(ctx context.Context, tx store.TaskStore) error {
		return tx.Create(ctx, task)
	}, false)
}

// GetByID implements store.TaskStore.GetByID.
func (s *InMemoryTaskStore) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*domain.Task, error) {
	var out *domain.Task
	err := s.run(ctx, func(ctx context.Context, tx store.TaskStore) error {
		var err error
		out, err = tx.GetByID(ctx, userID, id)
		return err
	}, false)
	return out, err
}

// List implements store.TaskStore.List.
func (s *InMemoryTaskStore) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Task, error) {
	var out []*domain.Task
	err := s.run(ctx, func(ctx context.Context, tx store.TaskStore) error {
		var err error
		out, err = tx.List(ctx, userID, offset, limit)
		return err
	}, false)
	return out, err
}

// ListAll implements store.TaskStore.ListAll.
func (s *InMemoryTaskStore) ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	var out []*domain.Task
	err := s.run(ctx, func(ctx context.Context, tx store.TaskStore) error {
		var err error
		out, err = tx.ListAll(ctx, userID)
		return err
	}, false)
	return out, err
}

// Count implements store.TaskStore.Count.
func (s *InMemoryTaskStore) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.run(ctx, func(ctx context.Context, tx store.TaskStore) error {
		var err error
		n, err = tx.Count(ctx, userID)
		return err
	}, false)
	return n, err
}

// Update implements store.TaskStore.Update.
func (s *InMemoryTaskStore) Update(ctx context.Context, task *domain.Task) error {
	return s.run(ctx, func(ctx context.Context, tx store.TaskStore) error {
		return tx.Update(ctx, task)
	}, false)
}

// Delete implements store.TaskStore.Delete.
func (s *InMemoryTaskStore) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	return s.run(ctx, func(ctx context.Context, tx store.TaskStore) error {
		return tx.Delete(ctx, userID, id)
	}, false)
}

func (s *InMemoryTaskStore) run(
	ctx context.Context,
	fn func(ctx context.Context, tx store.TaskStore) error,
	hook bool,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := s.begin()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if hook && s.BeforeCommit != nil {
		s.BeforeCommit()
	}
	return s.commit(tx)
}

func (s *InMemoryTaskStore) begin() *memTx {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := make(map[int64]*domain.Task, len(s.rows))
	for id, t := range s.rows {
		base[id] = t.Clone()
	}
	return &memTx{parent: s, base: base, writes: make(map[int64]*domain.Task)}
}

func (s *InMemoryTaskStore) allocID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *InMemoryTaskStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tx.writes) == 0 {
		return nil
	}

	next := make(map[int64]*domain.Task, len(s.rows)+len(tx.writes))
	for id, t := range s.rows {
		next[id] = t
	}

	touched := make(map[uuid.UUID]struct{})
	for id, staged := range tx.writes {
		if before, existed := tx.base[id]; existed {
			live, ok := s.rows[id]
			if !ok || live.Version != before.Version {
				return fmt.Errorf("%w: task %d was modified by another transaction", store.ErrConflict, id)
			}
			touched[before.UserID] = struct{}{}
		}
		if staged == nil {
			delete(next, id)
			continue
		}
		next[id] = staged
		touched[staged.UserID] = struct{}{}
	}

	for userID := range touched {
		seen := make(map[int]int64)
		for _, t := range next {
			if t.UserID != userID {
				continue
			}
			if other, dup := seen[t.Position]; dup {
				return fmt.Errorf("%w: tasks %d and %d both hold position %d",
					store.ErrConflict, other, t.ID, t.Position)
			}
			seen[t.Position] = t.ID
		}
	}

	s.rows = next
	return nil
}

// memTx is the transaction-scoped view handed to InTx bodies.
type memTx struct {
	parent *InMemoryTaskStore
	base   map[int64]*domain.Task
	writes map[int64]*domain.Task // nil value marks a deletion
}

var _ store.TaskStore = (*memTx)(nil)

func (tx *memTx) view(id int64) (*domain.Task, bool) {
	if t, staged := tx.writes[id]; staged {
		return t, t != nil
	}
	t, ok := tx.base[id]
	return t, ok
}

func (tx *memTx) visible() map[int64]*domain.Task {
	out := make(map[int64]*domain.Task, len(tx.base)+len(tx.writes))
	for id, t := range tx.base {
		out[id] = t
	}
	for id, t := range tx.writes {
		if t == nil {
			delete(out, id)
		} else {
			out[id] = t
		}
	}
	return out
}

func (tx *memTx) InTx(ctx context.Context, fn func(ctx context.Context, tx store.TaskStore) error) error {
	return fn(ctx, tx)
}

func (tx *memTx) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	task.ID = tx.parent.allocID()
	task.Version = 1
	tx.writes[task.ID] = task.Clone()
	return nil
}

func (tx *memTx) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*domain.Task, error) {
	t, ok := tx.view(id)
	if !ok || t.UserID != userID {
		return nil, store.ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (tx *memTx) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Task, error) {
	all := userTasks(tx.visible(), userID)
	if offset >= len(all) {
		return []*domain.Task{}, nil
	}
	end := len(all)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (tx *memTx) ListAll(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	return userTasks(tx.visible(), userID), nil
}

func (tx *memTx) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(userTasks(tx.visible(), userID)), nil
}

func (tx *memTx) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	current, ok := tx.view(task.ID)
	if !ok || current.UserID != task.UserID || current.Version != task.Version {
		return fmt.Errorf("%w: task %d changed since version %d", store.ErrConflict, task.ID, task.Version)
	}

	next := current.Clone()
	next.Title = task.Title
	next.Description = task.Description
	next.Completed = task.Completed
	next.Position = task.Position
	next.Version++
	tx.writes[task.ID] = next

	task.Version = next.Version
	return nil
}

func (tx *memTx) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	t, ok := tx.view(id)
	if !ok || t.UserID != userID {
		return store.ErrTaskNotFound
	}
	tx.writes[id] = nil
	return nil
}

func userTasks(rows map[int64]*domain.Task, userID uuid.UUID) []*domain.Task {
	out := make([]*domain.Task, 0)
	for _, t := range rows {
		if t.UserID == userID {
			out = append(out, t.Clone())
		}
	}
	domain.SortByPosition(out)
	return out
}
