package token

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// Refresh attempts are rate limited, and fetched keys are considered
	// fresh, for the same window.
	keySetRefreshCooldown = 10 * time.Minute
	keySetMaxAge          = 10 * time.Minute

	keySetFetchTimeout = 5 * time.Second
	maxKeySetBytes     = 1 << 20
)

// KeySetCache fetches and caches the identity provider's public key set,
// keyed by key id. It is the only mutable state shared across concurrent
// verifications: reads proceed under a shared lock while a refresh is in
// flight, and a failed refresh never evicts the last-known-good keys.
type KeySetCache struct {
	url    string
	client *http.Client
	logger *slog.Logger
	flight singleflight.Group

	mu          sync.RWMutex
	keys        map[string]any // kid -> *rsa.PublicKey or *ecdsa.PublicKey
	refreshedAt time.Time
	attemptedAt time.Time
}

// NewKeySetCache builds a cache for the key-set document at url.
// A nil client gets a default with a bounded timeout.
func NewKeySetCache(url string, client *http.Client, logger *slog.Logger) *KeySetCache {
	if client == nil {
		client = &http.Client{Timeout: keySetFetchTimeout}
	}
	return &KeySetCache{url: url, client: client, logger: logger}
}

// Key returns the public key for kid, refreshing the cached key set when
// it is stale or does not contain kid. An unknown kid after a successful
// refresh is an error; so is a failed refresh with no usable cached key.
func (c *KeySetCache) Key(ctx context.Context, kid string) (any, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := !c.refreshedAt.IsZero() && time.Since(c.refreshedAt) < keySetMaxAge
	attemptedAt := c.attemptedAt
	c.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if time.Since(attemptedAt) < keySetRefreshCooldown {
		// Refresh is on cooldown. Serve the cached key if we have one;
		// otherwise the kid is unknown until the next refresh window.
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: %q", errUnknownKeyID, kid)
	}

	keys, err := c.refresh(ctx)
	if err != nil {
		// Stale-but-valid keys are preferable to no keys.
		if ok {
			c.logger.Warn("key set refresh failed, serving cached key", "kid", kid, "error", err)
			return key, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	key, ok = keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownKeyID, kid)
	}
	return key, nil
}

// refresh fetches the key set, retrying once on failure. Concurrent
// callers share a single in-flight fetch instead of each hitting the
// provider. Fetch failures are transient by nature; signature and
// expiry failures never reach this path.
func (c *KeySetCache) refresh(ctx context.Context) (map[string]any, error) {
	result, err, _ := c.flight.Do(c.url, func() (any, error) {
		c.mu.Lock()
		c.attemptedAt = time.Now()
		c.mu.Unlock()

		keys, err := c.fetch(ctx)
		if err != nil {
			keys, err = c.fetch(ctx)
		}
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.keys = keys
		c.refreshedAt = time.Now()
		c.mu.Unlock()

		c.logger.Debug("key set refreshed", "keys", len(keys))
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

// keySetDocument is the JSON shape of the provider's key-set endpoint.
type keySetDocument struct {
	Keys []keySetEntry `json:"keys"`
}

type keySetEntry struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	// RSA
	N string `json:"n"`
	E string `json:"e"`
	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (c *KeySetCache) fetch(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, keySetFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build key set request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("key set request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("read key set response: %w", err)
	}

	var doc keySetDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode key set document: %w", err)
	}

	keys := make(map[string]any, len(doc.Keys))
	for _, entry := range doc.Keys {
		if entry.Kid == "" {
			continue
		}
		switch entry.Kty {
		case "RSA":
			key, err := parseRSAKey(entry.N, entry.E)
			if err != nil {
				c.logger.Warn("skipping malformed RSA key", "kid", entry.Kid, "error", err)
				continue
			}
			keys[entry.Kid] = key
		case "EC":
			key, err := parseECKey(entry.Crv, entry.X, entry.Y)
			if err != nil {
				c.logger.Warn("skipping malformed EC key", "kid", entry.Kid, "error", err)
				continue
			}
			keys[entry.Kid] = key
		}
	}
	return keys, nil
}

func parseRSAKey(nEncoded, eEncoded string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nEncoded)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eEncoded)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

func parseECKey(crv, xEncoded, yEncoded string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve %q", crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xEncoded)
	if err != nil {
		return nil, fmt.Errorf("decode x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yEncoded)
	if err != nil {
		return nil, fmt.Errorf("decode y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
