package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByExternalID looks up a user by provider identity.
func (r *PostgresRepository) FindByExternalID(ctx context.Context, provider, externalID string) (*User, error) {
	const query = `
		SELECT id, email, name, avatar_url, oauth_provider, oauth_provider_id, created_at, updated_at, last_login_at
		FROM users
		WHERE oauth_provider = $1 AND oauth_provider_id = $2
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, provider, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// FindByID looks up a user by internal id.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `
		SELECT id, email, name, avatar_url, oauth_provider, oauth_provider_id, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// Create inserts a new user. A unique violation on the provider identity
// key maps to ErrDuplicateUser so the service can resolve the race.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	const query = `
		INSERT INTO users (id, email, name, avatar_url, oauth_provider, oauth_provider_id, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.AvatarURL,
		user.Provider,
		user.ExternalID,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return User{}, ErrDuplicateUser
		}
		return User{}, err
	}

	return user, nil
}

// TouchLogin updates the user's last login time and refreshes profile data.
func (r *PostgresRepository) TouchLogin(ctx context.Context, id uuid.UUID, name, avatarURL string) error {
	const query = `
		UPDATE users
		SET name = $2, avatar_url = $3, last_login_at = $4, updated_at = $4
		WHERE id = $1
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query, id, name, avatarURL, now)
	return err
}

// userRow is a database row representation of User.
type userRow struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	Name        string    `db:"name"`
	AvatarURL   string    `db:"avatar_url"`
	Provider    string    `db:"oauth_provider"`
	ExternalID  string    `db:"oauth_provider_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	LastLoginAt time.Time `db:"last_login_at"`
}

func (r *userRow) toUser() *User {
	return &User{
		ID:          r.ID,
		Email:       r.Email,
		Name:        r.Name,
		AvatarURL:   r.AvatarURL,
		Provider:    r.Provider,
		ExternalID:  r.ExternalID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		LastLoginAt: r.LastLoginAt,
	}
}
