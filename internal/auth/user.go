package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is the locally provisioned record for an externally authenticated
// identity. (Provider, ExternalID) is the secondary unique key that makes
// just-in-time provisioning idempotent.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Provider    string    `json:"provider"`
	ExternalID  string    `json:"externalId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}
