package token

import (
	"context"
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer = "https://auth.example.test"
	testSecret = "super-secret-signing-key"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func standardClaims(expiresAt time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   Audience,
		"sub":   "user-123",
		"email": "kira@example.com",
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
		"user_metadata": map[string]any{
			"full_name":  "Kira Vale",
			"avatar_url": "https://example.com/kira.png",
		},
		"app_metadata": map[string]any{
			"provider": "google",
		},
	}
}

func mustSecretVerifier(t *testing.T) *SecretVerifier {
	t.Helper()
	v, err := NewSecretVerifier(testSecret, testIssuer, newTestLogger())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func assertCategory(t *testing.T, err error, want Category) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected classified error, got %T: %v", err, err)
	}
	if terr.Category != want {
		t.Fatalf("expected category %s, got %s (%v)", want, terr.Category, err)
	}
}

func TestNewSecretVerifierRequiresSecret(t *testing.T) {
	if _, err := NewSecretVerifier("", testIssuer, newTestLogger()); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewSecretVerifier("   ", testIssuer, newTestLogger()); err == nil {
		t.Fatal("expected error for blank secret")
	}
	if _, err := NewSecretVerifier(testSecret, "", newTestLogger()); err == nil {
		t.Fatal("expected error for empty issuer")
	}
}

func TestSecretVerifierValidToken(t *testing.T) {
	v := mustSecretVerifier(t)
	expiresAt := time.Now().Add(time.Hour)
	raw := signHS256(t, testSecret, standardClaims(expiresAt))

	payload, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Subject != "user-123" {
		t.Fatalf("expected subject user-123, got %q", payload.Subject)
	}
	if payload.Email != "kira@example.com" {
		t.Fatalf("unexpected email %q", payload.Email)
	}
	if payload.Issuer != testIssuer || payload.Audience != Audience {
		t.Fatalf("unexpected issuer/audience: %q / %q", payload.Issuer, payload.Audience)
	}
	if payload.ExpiresAt.Unix() != expiresAt.Unix() {
		t.Fatalf("expected expiry %v, got %v", expiresAt, payload.ExpiresAt)
	}
	if name, _ := payload.UserMetadata["full_name"].(string); name != "Kira Vale" {
		t.Fatalf("expected user metadata to carry full_name, got %v", payload.UserMetadata)
	}
	if provider, _ := payload.AppMetadata["provider"].(string); provider != "google" {
		t.Fatalf("expected app metadata to carry provider, got %v", payload.AppMetadata)
	}
}

func TestSecretVerifierExpiredToken(t *testing.T) {
	v := mustSecretVerifier(t)
	raw := signHS256(t, testSecret, standardClaims(time.Now().Add(-time.Hour)))

	_, err := v.Verify(context.Background(), raw)
	assertCategory(t, err, CategoryExpired)
}

// An expired token reports expiry even when the signature would not have
// verified: expiry is the actionable failure for the holder.
func TestSecretVerifierExpiryBeatsBadSignature(t *testing.T) {
	v := mustSecretVerifier(t)
	raw := signHS256(t, "a-different-secret", standardClaims(time.Now().Add(-time.Hour)))

	_, err := v.Verify(context.Background(), raw)
	assertCategory(t, err, CategoryExpired)
}

func TestSecretVerifierBadSignature(t *testing.T) {
	v := mustSecretVerifier(t)
	raw := signHS256(t, "a-different-secret", standardClaims(time.Now().Add(time.Hour)))

	_, err := v.Verify(context.Background(), raw)
	assertCategory(t, err, CategoryInvalidSignature)
}

func TestSecretVerifierMalformedToken(t *testing.T) {
	v := mustSecretVerifier(t)

	for _, raw := range []string{
		"not-a-token",
		"only.two",
		"a..c",
		"a.b.c.d",
		"a.!!!.c",
	} {
		_, err := v.Verify(context.Background(), raw)
		assertCategory(t, err, CategoryInvalidFormat)
	}
}

func TestSecretVerifierExpiryWithinLeeway(t *testing.T) {
	v := mustSecretVerifier(t)
	// Expired ten seconds ago, inside the allowed clock skew.
	raw := signHS256(t, testSecret, standardClaims(time.Now().Add(-10*time.Second)))

	if _, err := v.Verify(context.Background(), raw); err != nil {
		t.Fatalf("expected skew tolerance to accept the token, got %v", err)
	}
}

func TestSecretVerifierWrongAudience(t *testing.T) {
	v := mustSecretVerifier(t)
	claims := standardClaims(time.Now().Add(time.Hour))
	claims["aud"] = "service-role"
	raw := signHS256(t, testSecret, claims)

	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Fatal("expected audience mismatch to fail verification")
	}
}

func TestSecretVerifierWrongIssuer(t *testing.T) {
	v := mustSecretVerifier(t)
	claims := standardClaims(time.Now().Add(time.Hour))
	claims["iss"] = "https://someone-else.example.test"
	raw := signHS256(t, testSecret, claims)

	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Fatal("expected issuer mismatch to fail verification")
	}
}
