package session

import (
	"time"

	"tasknest/internal/auth"
)

// Event is a discrete input to the session state machine.
type Event interface {
	isEvent()
}

// RestoreSuccess replays a valid stored credential at startup.
type RestoreSuccess struct {
	User *auth.User
}

// RestoreEmpty completes the restore phase with no usable credential.
type RestoreEmpty struct{}

// SignInSuccess records a fresh authenticated sign-in. AccessToken and
// ExpiresAt ride along for the persistence observer; the reducer ignores
// them.
type SignInSuccess struct {
	User        *auth.User
	IsNewUser   bool
	AccessToken string
	ExpiresAt   time.Time
}

// SignInFailure records a failed sign-in attempt.
type SignInFailure struct {
	Message string
}

// TokenExpired reports that the active session's token expired.
type TokenExpired struct {
	At time.Time
}

// Logout is an explicit user sign-out.
type Logout struct{}

func (RestoreSuccess) isEvent() {}
func (RestoreEmpty) isEvent()   {}
func (SignInSuccess) isEvent()  {}
func (SignInFailure) isEvent()  {}
func (TokenExpired) isEvent()   {}
func (Logout) isEvent()         {}
