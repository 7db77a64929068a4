package token

import (
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Category identifies a verification failure class. The set is closed;
// callers key user-facing messages and HTTP statuses off it.
type Category string

const (
	CategoryTokenRequired    Category = "TOKEN_REQUIRED"
	CategoryInvalidFormat    Category = "INVALID_TOKEN_FORMAT"
	CategoryInvalidSignature Category = "INVALID_SIGNATURE"
	CategoryExpired          Category = "TOKEN_EXPIRED"
	CategoryKeySetFetch      Category = "JWKS_FETCH_FAILED"
	CategoryInvalidToken     Category = "INVALID_TOKEN"
)

var categoryMessages = map[Category]string{
	CategoryTokenRequired:    "authentication token is required",
	CategoryInvalidFormat:    "token is not in a recognized format",
	CategoryInvalidSignature: "token signature verification failed",
	CategoryExpired:          "token has expired",
	CategoryKeySetFetch:      "unable to fetch signing keys from the identity provider",
	CategoryInvalidToken:     "token is invalid",
}

// Error is a classified verification failure. Error() exposes only the
// category's fixed message; the underlying cause is kept for logging and
// errors.Is chains, never for the caller-visible string.
type Error struct {
	Category Category
	cause    error
}

// NewError wraps cause under the given category.
func NewError(category Category, cause error) *Error {
	return &Error{Category: category, cause: cause}
}

func (e *Error) Error() string {
	if msg, ok := categoryMessages[e.Category]; ok {
		return msg
	}
	return categoryMessages[CategoryInvalidToken]
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ErrKeySetUnavailable marks key-set fetch failures so they are never
// conflated with signature failures.
var ErrKeySetUnavailable = errors.New("signing key set unavailable")

// errUnknownKeyID is returned when a token names a key id the current
// key set does not contain, even after a refresh.
var errUnknownKeyID = errors.New("unknown signing key id")

// classifyRules maps error-message substrings to categories, checked in
// order with first match winning. Substring matching is a best-effort
// fallback for errors that carry no sentinel; unmatched errors fall
// through to the generic INVALID_TOKEN category.
var classifyRules = []struct {
	substr   string
	category Category
}{
	{"signature", CategoryInvalidSignature},
	{"expired", CategoryExpired},
	{"exp", CategoryExpired},
	{"jwks", CategoryKeySetFetch},
	{"fetch", CategoryKeySetFetch},
	{"format", CategoryInvalidFormat},
	{"parse", CategoryInvalidFormat},
	{"malformed", CategoryInvalidFormat},
}

// Classify maps a verification error to its failure category. Sentinel
// errors are matched first; message substrings are the fallback.
func Classify(err error) Category {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Category
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return CategoryExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return CategoryInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return CategoryInvalidFormat
	case errors.Is(err, ErrKeySetUnavailable):
		return CategoryKeySetFetch
	case errors.Is(err, errUnknownKeyID):
		return CategoryInvalidSignature
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classifyRules {
		if strings.Contains(msg, rule.substr) {
			return rule.category
		}
	}
	return CategoryInvalidToken
}
