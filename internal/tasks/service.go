package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxTitleLength = 500

// Service orchestrates validation and persistence for tasks.
type Service struct {
	repo Repository
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateTaskInput carries the fields a user may set on creation.
type CreateTaskInput struct {
	Title string
	Notes string
	DueAt *time.Time
}

// UpdateTaskInput carries the fields a user may change. Nil pointers
// leave the current value untouched.
type UpdateTaskInput struct {
	Title  *string
	Notes  *string
	Status *Status
	DueAt  *time.Time
}

// List returns the user's tasks.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	return s.repo.List(ctx, userID)
}

// Get returns a single task owned by the user.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (Task, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create validates and persists a new task.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (Task, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return Task{}, err
	}

	now := time.Now().UTC()
	task := Task{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Notes:     strings.TrimSpace(input.Notes),
		Status:    StatusOpen,
		DueAt:     input.DueAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return s.repo.Create(ctx, task)
}

// Update applies the provided changes to an existing task.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateTaskInput) (Task, error) {
	task, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := validateTitle(title); err != nil {
			return Task{}, err
		}
		task.Title = title
	}
	if input.Notes != nil {
		task.Notes = strings.TrimSpace(*input.Notes)
	}
	if input.Status != nil {
		switch *input.Status {
		case StatusOpen, StatusDone:
			task.Status = *input.Status
		default:
			return Task{}, &ValidationError{Message: "invalid status"}
		}
	}
	if input.DueAt != nil {
		task.DueAt = input.DueAt
	}

	task.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, task)
}

// Delete removes a task owned by the user.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func validateTitle(title string) error {
	if title == "" {
		return &ValidationError{Message: "title is required"}
	}
	if len(title) > maxTitleLength {
		return &ValidationError{Message: "title is too long"}
	}
	return nil
}
