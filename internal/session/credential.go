package session

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Reason is the machine-readable outcome of credential validation. The
// set is closed; callers use it to decide whether to clear storage and
// to pick a user-facing message.
type Reason string

const (
	ReasonMissing          Reason = "missing"
	ReasonParseError       Reason = "parse_error"
	ReasonInvalidExpiresAt Reason = "invalid_expires_at"
	ReasonExpired          Reason = "expired"
	ReasonInvalidToken     Reason = "invalid_token"
	ReasonInvalidUser      Reason = "invalid_user"
)

// Validation is the result of inspecting a stored credential blob.
type Validation struct {
	Valid  bool
	Reason Reason
}

// invalidTokenMarker is an explicit sentinel planted in a stored token to
// mark it as revoked; a token carrying it is never trusted.
const invalidTokenMarker = "invalid"

// ValidateCredential inspects a persisted credential blob before it is
// trusted. Checks run in a fixed order and short-circuit on the first
// failure. The function is pure: clearing storage on failure is the
// caller's responsibility.
func ValidateCredential(raw []byte, now time.Time) Validation {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Validation{Reason: ReasonMissing}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Validation{Reason: ReasonParseError}
	}

	// expiresAt must be a JSON number; a string timestamp is corrupt
	// data, not merely an unparseable date.
	rawExpires, ok := fields["expiresAt"]
	if !ok {
		return Validation{Reason: ReasonInvalidExpiresAt}
	}
	var expiresAt float64
	if err := json.Unmarshal(rawExpires, &expiresAt); err != nil {
		return Validation{Reason: ReasonInvalidExpiresAt}
	}

	// Strictly in the future; equal-to-now counts as expired.
	if expiresAt <= float64(now.UnixMilli()) {
		return Validation{Reason: ReasonExpired}
	}

	rawToken, ok := fields["accessToken"]
	if !ok {
		return Validation{Reason: ReasonInvalidToken}
	}
	var accessToken string
	if err := json.Unmarshal(rawToken, &accessToken); err != nil {
		return Validation{Reason: ReasonInvalidToken}
	}
	// Structural shape check only; signature verification happens
	// server-side.
	segments := strings.Split(accessToken, ".")
	if len(segments) != 3 {
		return Validation{Reason: ReasonInvalidToken}
	}
	for _, segment := range segments {
		if segment == "" {
			return Validation{Reason: ReasonInvalidToken}
		}
	}
	if strings.Contains(accessToken, invalidTokenMarker) {
		return Validation{Reason: ReasonInvalidToken}
	}

	rawUser, ok := fields["user"]
	if !ok {
		return Validation{Reason: ReasonInvalidUser}
	}
	var userFields map[string]json.RawMessage
	if err := json.Unmarshal(rawUser, &userFields); err != nil {
		return Validation{Reason: ReasonInvalidUser}
	}
	rawID, ok := userFields["id"]
	if !ok {
		return Validation{Reason: ReasonInvalidUser}
	}
	var id string
	if err := json.Unmarshal(rawID, &id); err != nil || id == "" {
		return Validation{Reason: ReasonInvalidUser}
	}

	return Validation{Valid: true}
}
