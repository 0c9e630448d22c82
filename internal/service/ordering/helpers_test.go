package ordering_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/mocks"
	"github.com/phrazzld/tasklist-api/internal/service/ordering"
	"github.com/stretchr/testify/require"
)

// seedList stores one task per title for userID at positions 0..N-1 and
// returns them in that order.
func seedList(s *mocks.InMemoryTaskStore, userID uuid.UUID, titles ...string) []*domain.Task {
	out := make([]*domain.Task, len(titles))
	for i, title := range titles {
		out[i] = &domain.Task{UserID: userID, Title: title, Position: i}
		s.Seed(out[i])
	}
	return out
}

// titles returns the user's committed titles in list order.
func titles(s *mocks.InMemoryTaskStore, userID uuid.UUID) []string {
	snap := s.Snapshot(userID)
	out := make([]string, len(snap))
	for i, t := range snap {
		out[i] = t.Title
	}
	return out
}

// requireDense fails the test unless the user's positions are exactly 0..N-1.
func requireDense(t *testing.T, s *mocks.InMemoryTaskStore, userID uuid.UUID) {
	t.Helper()
	require.NoError(t, domain.ValidateDense(s.Snapshot(userID)))
}

func newScope(s *mocks.InMemoryTaskStore, userID uuid.UUID) ordering.Scope {
	return ordering.Scope{UserID: userID, Tasks: s}
}
