package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTaskStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresTaskStore(db, nil), mock
}

var taskRowColumns = []string{
	"id", "user_id", "title", "description", "completed", "position", "version", "created_at",
}

func TestPostgresTaskStore_Create(t *testing.T) {
	s, mock := newMockTaskStore(t)
	userID := uuid.New()
	task, err := domain.NewTask(userID, "write report", "", false)
	require.NoError(t, err)
	task.Position = 3

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(userID, "write report", "", false, 3, task.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow(int64(17), 1))

	require.NoError(t, s.Create(context.Background(), task))
	assert.Equal(t, int64(17), task.ID)
	assert.Equal(t, 1, task.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_Create_InvalidTask(t *testing.T) {
	s, mock := newMockTaskStore(t)

	err := s.Create(context.Background(), &domain.Task{UserID: uuid.New(), Title: "  "})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_GetByID(t *testing.T) {
	userID := uuid.New()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 AND user_id = $2")).
			WithArgs(int64(5), userID).
			WillReturnRows(sqlmock.NewRows(taskRowColumns).
				AddRow(int64(5), userID.String(), "a", "desc", true, 2, 4, created))

		task, err := s.GetByID(context.Background(), userID, 5)
		require.NoError(t, err)
		assert.Equal(t, &domain.Task{
			ID: 5, UserID: userID, Title: "a", Description: "desc",
			Completed: true, Position: 2, Version: 4, CreatedAt: created,
		}, task)
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id")).
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetByID(context.Background(), userID, 5)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStore_List(t *testing.T) {
	s, mock := newMockTaskStore(t)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY position ASC, id ASC")).
		WithArgs(userID, 10, 5).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(int64(1), userID.String(), "a", "", false, 10, 1, now).
			AddRow(int64(2), userID.String(), "b", "", false, 11, 1, now))

	tasks, err := s.List(context.Background(), userID, 10, 5)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 10, tasks[0].Position)
	assert.Equal(t, 11, tasks[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_List_RowFailures(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()
	rowErr := errors.New("connection reset")

	tests := []struct {
		name      string
		rows      *sqlmock.Rows
		wantMsg   string
		wantCause error
	}{
		{
			name: "unscannable row",
			rows: sqlmock.NewRows(taskRowColumns).
				AddRow(int64(1), "not-a-uuid", "a", "", false, 0, 1, now),
			wantMsg: "failed to scan row",
		},
		{
			name: "iteration error",
			rows: sqlmock.NewRows(taskRowColumns).
				AddRow(int64(1), userID.String(), "a", "", false, 0, 1, now).
				RowError(0, rowErr),
			wantMsg:   "failed to iterate rows",
			wantCause: rowErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockTaskStore(t)
			mock.ExpectQuery("SELECT").WillReturnRows(tt.rows)

			tasks, err := s.List(context.Background(), userID, 0, 10)
			assert.Nil(t, tasks)

			var storeErr *store.StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, "task", storeErr.Entity)
			assert.Equal(t, "list", storeErr.Operation)
			assert.Equal(t, tt.wantMsg, storeErr.Message)
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
			}
		})
	}
}

func TestPostgresTaskStore_ListAll_Empty(t *testing.T) {
	s, mock := newMockTaskStore(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(taskRowColumns))

	tasks, err := s.ListAll(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestPostgresTaskStore_Update(t *testing.T) {
	userID := uuid.New()
	task := func() *domain.Task {
		return &domain.Task{ID: 9, UserID: userID, Title: "t", Position: 1, Version: 3}
	}

	t.Run("version matches", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $5 AND user_id = $6 AND version = $7")).
			WithArgs("t", "", false, 1, int64(9), userID, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tk := task()
		require.NoError(t, s.Update(context.Background(), tk))
		assert.Equal(t, 4, tk.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))

		tk := task()
		err := s.Update(context.Background(), tk)
		assert.ErrorIs(t, err, store.ErrConflict)
		assert.Equal(t, 3, tk.Version)
	})
}

func TestPostgresTaskStore_Delete(t *testing.T) {
	userID := uuid.New()

	t.Run("deleted", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1 AND user_id = $2")).
			WithArgs(int64(3), userID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, s.Delete(context.Background(), userID, 3))
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectExec("DELETE FROM tasks").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, s.Delete(context.Background(), userID, 3), store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStore_InTx(t *testing.T) {
	userID := uuid.New()

	t.Run("commits and nests", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectCommit()

		err := s.InTx(context.Background(), func(ctx context.Context, tx store.TaskStore) error {
			return tx.InTx(ctx, func(ctx context.Context, inner store.TaskStore) error {
				n, err := inner.Count(ctx, userID)
				assert.Equal(t, 2, n)
				return err
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		sentinel := errors.New("abort")
		err := s.InTx(context.Background(), func(ctx context.Context, tx store.TaskStore) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deferred position clash at commit is a conflict", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: TaskPositionConstraint,
		})

		err := s.InTx(context.Background(), func(ctx context.Context, tx store.TaskStore) error {
			return nil
		})
		assert.ErrorIs(t, err, store.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict from fn is preserved", func(t *testing.T) {
		s, mock := newMockTaskStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.InTx(context.Background(), func(ctx context.Context, tx store.TaskStore) error {
			return fmt.Errorf("%w: task 1 changed", store.ErrConflict)
		})
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}
