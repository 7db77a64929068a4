package token

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// KeySetVerifier verifies asymmetrically signed tokens against the
// identity provider's published key set.
type KeySetVerifier struct {
	issuer string
	keys   *KeySetCache
	logger *slog.Logger
}

// NewKeySetVerifier wires a verifier for tokens issued by issuer, using
// keys to resolve signing keys by key id.
func NewKeySetVerifier(issuer string, keys *KeySetCache, logger *slog.Logger) (*KeySetVerifier, error) {
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("token: issuer is required")
	}
	if keys == nil {
		return nil, errors.New("token: key set cache is required")
	}
	return &KeySetVerifier{issuer: issuer, keys: keys, logger: logger}, nil
}

// Verify checks the token's structure, signature and standard claims.
// Failures come back as a classified *Error; the raw cause is logged
// here for audit and never surfaces in the returned message.
func (v *KeySetVerifier) Verify(ctx context.Context, raw string) (*Payload, error) {
	if _, ok := splitSegments(raw); !ok {
		return nil, NewError(CategoryInvalidFormat, errors.New("token does not have three segments"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(Audience),
		jwt.WithLeeway(ClockSkew),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header carries no kid")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		category := Classify(err)
		v.logger.Warn("token verification failed", "category", string(category), "error", err)
		return nil, NewError(category, err)
	}

	return payloadFromClaims(claims), nil
}
