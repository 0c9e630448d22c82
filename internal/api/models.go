package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse defines the successful response for register and login.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`

	// ExpiresAt is the RFC 3339 time the access token expires.
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=255"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// UpdateTaskRequest defines the payload for replacing a task's fields.
// Omitting description keeps the stored one.
type UpdateTaskRequest struct {
	Title       string  `json:"title"       validate:"required,max=255"`
	Completed   bool    `json:"completed"`
	Description *string `json:"description"`
}

// UpdateTaskTitleRequest defines the payload for renaming a task.
type UpdateTaskTitleRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

// ReorderItem is one requested move within a ReorderRequest.
type ReorderItem struct {
	ID       int64 `json:"id"       validate:"required"`
	Position *int  `json:"position" validate:"required,gte=0"`
}

// ReorderRequest defines the payload for the reorder endpoint.
type ReorderRequest struct {
	Tasks []ReorderItem `json:"tasks" validate:"required,dive"`
}

// TaskResponse is the JSON form of a task.
type TaskResponse struct {
	ID          int64     `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// OKResponse acknowledges a successful delete.
type OKResponse struct {
	OK bool `json:"ok"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// IndexResponse is served at the root path.
type IndexResponse struct {
	Documentation string `json:"documentation"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Position:    t.Position,
		CreatedAt:   t.CreatedAt,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = taskToResponse(t)
	}
	return out
}
