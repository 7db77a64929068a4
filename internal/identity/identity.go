// Package identity normalizes verified token claims into a
// provider-agnostic external identity.
package identity

import (
	"fmt"

	"tasknest/internal/token"
)

// Identity is the normalized projection of a verified claim set.
// Immutable value object; AvatarURL stays empty when the provider
// supplies none.
type Identity struct {
	ID        string
	Provider  string
	Email     string
	Name      string
	AvatarURL string
}

// MissingFieldError reports a required claim that was absent or empty,
// named by its dotted path in the claim payload.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return "missing required claim: " + e.Path
}

// Code returns the machine-readable error code for API responses.
func (e *MissingFieldError) Code() string {
	return fmt.Sprintf("MISSING_FIELD(%s)", e.Path)
}

// Extract validates required claims in a fixed order and builds the
// external identity. It fails fast on the first missing field; partial
// identities are never returned.
func Extract(p *token.Payload) (Identity, error) {
	if p == nil || p.Subject == "" {
		return Identity{}, &MissingFieldError{Path: "sub"}
	}
	if p.Email == "" {
		return Identity{}, &MissingFieldError{Path: "email"}
	}

	name := stringField(p.UserMetadata, "full_name")
	if name == "" {
		return Identity{}, &MissingFieldError{Path: "user_metadata.full_name"}
	}

	provider := stringField(p.AppMetadata, "provider")
	if provider == "" {
		return Identity{}, &MissingFieldError{Path: "app_metadata.provider"}
	}

	return Identity{
		ID:        p.Subject,
		Provider:  provider,
		Email:     p.Email,
		Name:      name,
		AvatarURL: stringField(p.UserMetadata, "avatar_url"),
	}, nil
}

func stringField(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	value, _ := meta[key].(string)
	return value
}
