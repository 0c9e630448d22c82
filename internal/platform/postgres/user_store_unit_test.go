package postgres

import (
	"context"
	"database/sql"
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
	"golang.org/x/crypto/bcrypt"
)

func newMockUserStore(t *testing.T) (*PostgresUserStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresUserStore(db, bcrypt.MinCost), mock
}

func TestPostgresUserStore_Create(t *testing.T) {
	user, err := domain.NewUser("Someone@Example.com", "a-long-enough-password")
	require.NoError(t, err)

	t.Run("hashes and clears password", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		u := *user
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(u.ID, "someone@example.com", sqlmock.AnyArg(), u.CreatedAt, u.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), &u))
		assert.Empty(t, u.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte("a-long-enough-password")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		u := *user
		mock.ExpectExec("INSERT INTO users").WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: UserEmailConstraint,
		})

		err := s.Create(context.Background(), &u)
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("hash failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		s := NewPostgresUserStore(db, bcrypt.MaxCost+1)
		u := *user

		err = s.Create(context.Background(), &u)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "user", storeErr.Entity)
		assert.Equal(t, "create", storeErr.Operation)
		assert.ErrorContains(t, err, "failed to hash password")
		assert.Empty(t, u.HashedPassword)
		assert.NoError(t, mock.ExpectationsWereMet(), "nothing is written")
	})

	t.Run("invalid user", func(t *testing.T) {
		s, _ := newMockUserStore(t)
		err := s.Create(context.Background(), &domain.User{ID: uuid.New(), Email: "bad"})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresUserStore_GetByEmail(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()

	t.Run("found with normalized email", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
			WithArgs("someone@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "hashed_password", "created_at", "updated_at"}).
				AddRow(id.String(), "someone@example.com", "hash", now, now))

		u, err := s.GetByEmail(context.Background(), "  Someone@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "hash", u.HashedPassword)
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockUserStore(t)
		mock.ExpectQuery("FROM users").WillReturnError(sql.ErrNoRows)

		_, err := s.GetByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestPostgresUserStore_GetByID_Missing(t *testing.T) {
	s, mock := newMockUserStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
