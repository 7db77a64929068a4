package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"tasknest/internal/identity"
	"tasknest/internal/token"
)

// Service turns raw bearer tokens into local users, provisioning them
// just in time on first sign-in.
type Service struct {
	verifier token.Verifier
	repo     Repository
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the authentication service with the configured
// verifier and user repository.
func NewService(verifier token.Verifier, repo Repository, logger *slog.Logger) *Service {
	return &Service{
		verifier: verifier,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
	}
}

// Authentication is the outcome of a successful sign-in: the resolved
// local user, whether this call created it, and the verified token's
// expiry so callers never trust the result past the token's lifetime.
type Authentication struct {
	User      *User
	IsNewUser bool
	ExpiresAt time.Time
}

// Authenticate verifies rawToken, extracts the external identity, and
// resolves the local user, creating it on first sign-in. Retrying with
// another valid token for the same identity never creates a duplicate
// record.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*Authentication, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, token.NewError(token.CategoryTokenRequired, nil)
	}

	payload, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	ident, err := identity.Extract(payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByExternalID(ctx, ident.Provider, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return s.refreshLogin(ctx, existing, ident, payload.ExpiresAt)
	}

	now := s.now()
	user := User{
		ID:          uuid.New(),
		Email:       ident.Email,
		Name:        ident.Name,
		AvatarURL:   ident.AvatarURL,
		Provider:    ident.Provider,
		ExternalID:  ident.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			// A concurrent request provisioned the same identity first;
			// fall back to the record it created.
			existing, ferr := s.repo.FindByExternalID(ctx, ident.Provider, ident.ID)
			if ferr != nil {
				return nil, fmt.Errorf("find user after duplicate create: %w", ferr)
			}
			if existing != nil {
				return s.refreshLogin(ctx, existing, ident, payload.ExpiresAt)
			}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("provisioned new user", "user_id", created.ID, "provider", created.Provider)
	return &Authentication{User: &created, IsNewUser: true, ExpiresAt: payload.ExpiresAt}, nil
}

func (s *Service) refreshLogin(ctx context.Context, user *User, ident identity.Identity, expiresAt time.Time) (*Authentication, error) {
	if err := s.repo.TouchLogin(ctx, user.ID, ident.Name, ident.AvatarURL); err != nil {
		return nil, fmt.Errorf("update user login: %w", err)
	}
	user.Name = ident.Name
	user.AvatarURL = ident.AvatarURL
	user.LastLoginAt = s.now()
	return &Authentication{User: user, ExpiresAt: expiresAt}, nil
}
