package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrDuplicateUser is returned by Create when a record with the same
// (provider, external id) already exists.
var ErrDuplicateUser = errors.New("user already exists")

// Repository defines the interface for user persistence.
type Repository interface {
	FindByExternalID(ctx context.Context, provider, externalID string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, user User) (User, error)

	// TouchLogin refreshes last_login_at and the mutable profile fields.
	TouchLogin(ctx context.Context, id uuid.UUID, name, avatarURL string) error
}
