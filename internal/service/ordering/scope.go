package ordering

import (
	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/store"
)

// Scope identifies whose list an operation acts on and which store it uses.
// Every read and write made through a Scope is restricted to UserID.
type Scope struct {
	UserID uuid.UUID
	Tasks  store.TaskStore
}

// Move requests that a task end up at Position.
type Move struct {
	TaskID   int64
	Position int
}
