package token

import (
	"context"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Audience is the fixed "aud" claim stamped on every token the identity
// provider issues for end users.
const Audience = "authenticated"

// ClockSkew is the tolerance applied when comparing token timestamps
// against local wall-clock time.
const ClockSkew = 30 * time.Second

// Payload holds the claims of a successfully verified token.
type Payload struct {
	Subject      string
	Email        string
	Issuer       string
	Audience     string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	UserMetadata map[string]any
	AppMetadata  map[string]any
}

// Verifier checks a raw bearer token and returns its claims.
// Implementations must be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Payload, error)
}

// splitSegments returns the three dot-separated token segments, or false
// if the token does not have exactly three non-empty segments.
func splitSegments(raw string) ([]string, bool) {
	segments := strings.Split(raw, ".")
	if len(segments) != 3 {
		return nil, false
	}
	for _, s := range segments {
		if s == "" {
			return nil, false
		}
	}
	return segments, true
}

func payloadFromClaims(claims jwt.MapClaims) *Payload {
	p := &Payload{}

	p.Subject, _ = claims["sub"].(string)
	p.Email, _ = claims["email"].(string)
	p.Issuer, _ = claims["iss"].(string)

	switch aud := claims["aud"].(type) {
	case string:
		p.Audience = aud
	case []any:
		if len(aud) > 0 {
			p.Audience, _ = aud[0].(string)
		}
	}

	if iat, ok := claims["iat"].(float64); ok {
		p.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		p.ExpiresAt = time.Unix(int64(exp), 0)
	}

	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		p.UserMetadata = meta
	}
	if meta, ok := claims["app_metadata"].(map[string]any); ok {
		p.AppMetadata = meta
	}

	return p
}
