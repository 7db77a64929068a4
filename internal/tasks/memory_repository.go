package tasks

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository stores tasks in an in-process map, ideal for local
// development or tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	data  map[uuid.UUID]Task
	order []uuid.UUID
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[uuid.UUID]Task)}
}

// List returns the user's tasks, newest first.
func (r *InMemoryRepository) List(_ context.Context, userID uuid.UUID) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		if task, ok := r.data[r.order[i]]; ok && task.UserID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

// Get returns a task by ID, scoped to the owning user.
func (r *InMemoryRepository) Get(_ context.Context, userID, id uuid.UUID) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.data[id]
	if !ok || task.UserID != userID {
		return Task{}, ErrNotFound
	}
	return task, nil
}

// Create stores a new task.
func (r *InMemoryRepository) Create(_ context.Context, task Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[task.ID] = task
	r.order = append(r.order, task.ID)
	return task, nil
}

// Update replaces an existing task.
func (r *InMemoryRepository) Update(_ context.Context, task Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[task.ID]
	if !ok || existing.UserID != task.UserID {
		return Task{}, ErrNotFound
	}
	r.data[task.ID] = task
	return task, nil
}

// Delete removes a task, scoped to the owning user.
func (r *InMemoryRepository) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.data[id]
	if !ok || task.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
