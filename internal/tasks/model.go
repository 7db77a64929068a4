package tasks

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a task cannot be located for the user.
var ErrNotFound = errors.New("task not found")

// ErrValidation is returned when input validation fails.
var ErrValidation = errors.New("validation error")

// ValidationError wraps a validation message so callers can distinguish
// client errors from internal failures.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Status tracks a task's lifecycle.
type Status string

const (
	StatusOpen Status = "open"
	StatusDone Status = "done"
)

// Task is a user-owned todo entry.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Status    Status     `json:"status"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
