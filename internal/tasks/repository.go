package tasks

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for task persistence. All lookups are
// scoped to the owning user.
type Repository interface {
	List(ctx context.Context, userID uuid.UUID) ([]Task, error)
	Get(ctx context.Context, userID, id uuid.UUID) (Task, error)
	Create(ctx context.Context, task Task) (Task, error)
	Update(ctx context.Context, task Task) (Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
