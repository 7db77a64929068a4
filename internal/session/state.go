// Package session holds the client-side session state machine: a pure
// reducer over discrete events, a manager that applies events one at a
// time, and a persistence observer that mirrors terminal transitions
// into a key-value store.
package session

import (
	"time"

	"tasknest/internal/auth"
)

// ErrorCode identifies why a session ended up unauthenticated with a
// visible error.
type ErrorCode string

const (
	ErrorCodeExpired      ErrorCode = "EXPIRED"
	ErrorCodeSignInFailed ErrorCode = "SIGNIN_FAILED"
)

// StateError is the dismissible notice attached to an unauthenticated
// state.
type StateError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at,omitzero"`
}

// State is the single session record a client runtime holds. Invariants:
// IsAuthenticated implies User is non-nil, and Err non-nil implies
// IsAuthenticated is false.
type State struct {
	IsAuthenticated bool
	User            *auth.User
	IsLoading       bool
	IsRestoring     bool
	Err             *StateError
}

// Initial is the state at process start, before the stored credential
// has been inspected.
func Initial() State {
	return State{IsRestoring: true}
}
