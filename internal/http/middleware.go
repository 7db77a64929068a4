package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"log/slog"

	gocache "github.com/patrickmn/go-cache"

	"tasknest/internal/auth"
	"tasknest/internal/token"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", recorder.status, "duration", duration.String())
		})
	}
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the authenticated user from the request context.
// Returns nil if the auth middleware hasn't populated the context.
func UserFromContext(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userContextKey).(*auth.User)
	return user
}

// authenticator is the slice of the auth service the middleware needs.
type authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*auth.Authentication, error)
}

const (
	identityCacheTTL   = 5 * time.Minute
	identityCacheSweep = 10 * time.Minute
)

// newBearerAuthMiddleware authenticates requests by their bearer token.
// Verified identities are cached briefly by token hash so hot clients
// don't re-verify and re-touch the user row on every request.
func newBearerAuthMiddleware(svc authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	identities := gocache.New(identityCacheTTL, identityCacheSweep)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, string(token.CategoryTokenRequired), "authentication token is required")
				return
			}

			key := hashToken(raw)
			if cached, ok := identities.Get(key); ok {
				if user, ok := cached.(*auth.User); ok {
					next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
					return
				}
			}

			result, err := svc.Authenticate(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeAuthError(w, err, logger)
				return
			}

			if ttl := cacheTTLFor(result.ExpiresAt); ttl > 0 {
				identities.Set(key, result.User, ttl)
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), result.User)))
		})
	}
}

// cacheTTLFor bounds a cache entry's lifetime by the verified token's
// expiry, so a cached identity never outlives its token. Zero or
// negative means the token is too close to expiry to cache at all.
func cacheTTLFor(expiresAt time.Time) time.Duration {
	ttl := identityCacheTTL
	if expiresAt.IsZero() {
		return ttl
	}
	if remaining := time.Until(expiresAt) - token.ClockSkew; remaining < ttl {
		ttl = remaining
	}
	return ttl
}

func withUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// bearerToken strips the Bearer scheme from the Authorization header.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

// hashToken returns the SHA-256 hash of the token as a hex string, so
// raw tokens never sit in the cache as map keys.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newSecurityHeadersMiddleware(environment string) func(http.Handler) http.Handler {
	isDev := strings.EqualFold(environment, "development")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if !isDev {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
