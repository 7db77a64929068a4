package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Verifier selection modes. The choice between the key-set and
// shared-secret verification paths is a deployment decision, never
// inferred from the token itself.
const (
	VerifierJWKS   = "jwks"
	VerifierSecret = "secret"
)

// Config aggregates runtime configuration for the Tasknest services.
type Config struct {
	Environment    string
	HTTPPort       int
	DatabaseURL    string
	DataStore      string
	LogLevel       string
	AllowedOrigins []string

	// AuthIssuerURL is the identity provider's issuer; tokens must carry
	// it verbatim in their "iss" claim.
	AuthIssuerURL string
	// AuthJWTSecret is the pre-shared symmetric secret, used only by the
	// shared-secret verifier.
	AuthJWTSecret string
	// AuthVerifier is "jwks" or "secret".
	AuthVerifier string
}

// Load reads configuration from environment variables with sensible
// defaults for local development. A .env file is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/tasknest_database_url")
	if err != nil {
		return Config{}, err
	}

	jwtSecret, err := getEnvOrFile("AUTH_JWT_SECRET", "/run/secrets/tasknest_jwt_secret")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:    getEnv("APP_ENV", "development"),
		DatabaseURL:    databaseURL,
		DataStore:      strings.ToLower(getEnv("DATA_STORE", "memory")),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins: parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:4200,http://localhost:8080")),
		AuthIssuerURL:  strings.TrimSpace(os.Getenv("AUTH_ISSUER_URL")),
		AuthJWTSecret:  strings.TrimSpace(jwtSecret),
		AuthVerifier:   strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_VERIFIER"))),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	if err := cfg.resolveVerifier(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// resolveVerifier settles which verification path the deployment uses.
// An explicit AUTH_VERIFIER wins; otherwise the path is inferred from
// which credentials are configured, preferring the key set when both
// are available.
func (c *Config) resolveVerifier() error {
	switch c.AuthVerifier {
	case VerifierJWKS:
		if c.AuthIssuerURL == "" {
			return fmt.Errorf("AUTH_VERIFIER is jwks but AUTH_ISSUER_URL is not set")
		}
	case VerifierSecret:
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_VERIFIER is secret but AUTH_JWT_SECRET is not set")
		}
		if c.AuthIssuerURL == "" {
			return fmt.Errorf("AUTH_VERIFIER is secret but AUTH_ISSUER_URL is not set")
		}
	case "":
		switch {
		case c.AuthIssuerURL != "":
			c.AuthVerifier = VerifierJWKS
		case c.AuthJWTSecret != "":
			return fmt.Errorf("AUTH_JWT_SECRET is set but AUTH_ISSUER_URL is not")
		default:
			return fmt.Errorf("no token verifier configured: set AUTH_ISSUER_URL or AUTH_JWT_SECRET")
		}
	default:
		return fmt.Errorf("invalid AUTH_VERIFIER %q: want %q or %q", c.AuthVerifier, VerifierJWKS, VerifierSecret)
	}
	return nil
}

// JWKSURL returns the issuer's well-known key-set endpoint.
func (c Config) JWKSURL() string {
	return strings.TrimSuffix(c.AuthIssuerURL, "/") + "/.well-known/jwks.json"
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repositories should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
