package tasks

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns the user's tasks, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	const query = `
		SELECT id, user_id, title, notes, status, due_at, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	out := make([]Task, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toTask())
	}
	return out, nil
}

// Get returns a task by ID, scoped to the owning user.
func (r *PostgresRepository) Get(ctx context.Context, userID, id uuid.UUID) (Task, error) {
	const query = `
		SELECT id, user_id, title, notes, status, due_at, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	var row taskRow
	if err := r.db.GetContext(ctx, &row, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return row.toTask(), nil
}

// Create inserts a new task.
func (r *PostgresRepository) Create(ctx context.Context, task Task) (Task, error) {
	const query = `
		INSERT INTO tasks (id, user_id, title, notes, status, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Notes,
		task.Status,
		task.DueAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// Update replaces the mutable fields of an existing task.
func (r *PostgresRepository) Update(ctx context.Context, task Task) (Task, error) {
	const query = `
		UPDATE tasks
		SET title = $3, notes = $4, status = $5, due_at = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Notes,
		task.Status,
		task.DueAt,
		task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Task{}, err
	}
	if affected == 0 {
		return Task{}, ErrNotFound
	}
	return task, nil
}

// Delete removes a task, scoped to the owning user.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// taskRow is a database row representation of Task.
type taskRow struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	Title     string     `db:"title"`
	Notes     string     `db:"notes"`
	Status    Status     `db:"status"`
	DueAt     *time.Time `db:"due_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (r *taskRow) toTask() Task {
	return Task{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Notes:     r.Notes,
		Status:    r.Status,
		DueAt:     r.DueAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
