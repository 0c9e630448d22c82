package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the longest title a task may carry, in characters.
const MaxTitleLength = 255

// Task-specific validation errors
var (
	// ErrTaskUserIDEmpty is returned when a task has no owner.
	ErrTaskUserIDEmpty = errors.New("task user ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task title is empty or whitespace only.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskTitleTooLong is returned when a task title exceeds MaxTitleLength.
	ErrTaskTitleTooLong = errors.New("task title is too long")

	// ErrTaskPositionNegative is returned when a task position is below zero.
	ErrTaskPositionNegative = errors.New("task position cannot be negative")
)

// Task is a single entry in a user's task list.
//
// Position is the task's zero-based rank within its owner's list. Across all
// tasks of one user the positions form the dense sequence 0..N-1.
// Version is the optimistic-concurrency stamp: every persisted write must
// present the version it read and the store increments it on success.
type Task struct {
	ID          int64     `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Position    int       `json:"position"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTask creates an unsaved Task owned by userID. The ID, Position and
// Version are assigned when the task is appended to the user's list.
func NewTask(userID uuid.UUID, title, description string, completed bool) (*Task, error) {
	task := &Task{
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Completed:   completed,
		CreatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.UserID == uuid.Nil {
		return ErrTaskUserIDEmpty
	}

	if err := validateTitle(t.Title); err != nil {
		return err
	}

	if t.Position < 0 {
		return ErrTaskPositionNegative
	}

	return nil
}

// Rename replaces the task title. The position is never affected.
func (t *Task) Rename(title string) error {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return err
	}
	t.Title = title
	return nil
}

// Clone returns a copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTaskTitleEmpty
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTaskTitleTooLong
	}
	return nil
}
