package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository stores users in an in-process map, ideal for local
// development or tests.
type InMemoryRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]User
	byIdentity map[string]uuid.UUID
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:       make(map[uuid.UUID]User),
		byIdentity: make(map[string]uuid.UUID),
	}
}

func identityKey(provider, externalID string) string {
	return provider + "\x00" + externalID
}

// FindByExternalID looks up a user by provider identity; nil when absent.
func (r *InMemoryRepository) FindByExternalID(_ context.Context, provider, externalID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byIdentity[identityKey(provider, externalID)]
	if !ok {
		return nil, nil
	}
	user := r.byID[id]
	return &user, nil
}

// FindByID looks up a user by internal id; nil when absent.
func (r *InMemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// Create stores a new user, enforcing the (provider, external id)
// uniqueness the JIT flow relies on.
func (r *InMemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(user.Provider, user.ExternalID)
	if _, exists := r.byIdentity[key]; exists {
		return User{}, ErrDuplicateUser
	}

	r.byID[user.ID] = user
	r.byIdentity[key] = user.ID
	return user, nil
}

// TouchLogin refreshes last_login_at and profile fields.
func (r *InMemoryRepository) TouchLogin(_ context.Context, id uuid.UUID, name, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil
	}
	now := time.Now()
	user.Name = name
	user.AvatarURL = avatarURL
	user.LastLoginAt = now
	user.UpdatedAt = now
	r.byID[id] = user
	return nil
}
