package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}

func keySetJSON(t *testing.T, kid string, pub *rsa.PublicKey) []byte {
	t.Helper()
	doc := keySetDocument{Keys: []keySetEntry{{
		Kty: "RSA",
		Kid: kid,
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal key set: %v", err)
	}
	return data
}

func newKeySetServer(t *testing.T, kid string, pub *rsa.PublicKey, hits *int) *httptest.Server {
	t.Helper()
	body := keySetJSON(t, kid, pub)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestKeySetCacheFetchesKey(t *testing.T) {
	key := generateRSAKey(t)
	var hits int
	server := newKeySetServer(t, "k1", &key.PublicKey, &hits)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())

	got, err := cache.Key(context.Background(), "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pub, ok := got.(*rsa.PublicKey)
	if !ok {
		t.Fatalf("expected *rsa.PublicKey, got %T", got)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 || pub.E != key.PublicKey.E {
		t.Fatal("fetched key does not match the served key")
	}
	if hits != 1 {
		t.Fatalf("expected one fetch, got %d", hits)
	}
}

func TestKeySetCacheServesFreshKeysWithoutRefetch(t *testing.T) {
	key := generateRSAKey(t)
	var hits int
	server := newKeySetServer(t, "k1", &key.PublicKey, &hits)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())

	for i := 0; i < 5; i++ {
		if _, err := cache.Key(context.Background(), "k1"); err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}
	if hits != 1 {
		t.Fatalf("expected a single fetch for repeated lookups, got %d", hits)
	}
}

func TestKeySetCacheUnknownKidOnCooldown(t *testing.T) {
	key := generateRSAKey(t)
	var hits int
	server := newKeySetServer(t, "k1", &key.PublicKey, &hits)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())
	if _, err := cache.Key(context.Background(), "k1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	// A kid the fresh key set does not contain must not trigger another
	// fetch inside the cooldown window.
	_, err := cache.Key(context.Background(), "k2")
	if !errors.Is(err, errUnknownKeyID) {
		t.Fatalf("expected unknown kid error, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected no extra fetch during cooldown, got %d", hits)
	}
}

func TestKeySetCacheRefetchesWhenStale(t *testing.T) {
	key := generateRSAKey(t)
	var hits int
	server := newKeySetServer(t, "k1", &key.PublicKey, &hits)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())
	if _, err := cache.Key(context.Background(), "k1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	cache.mu.Lock()
	cache.refreshedAt = time.Now().Add(-keySetMaxAge - time.Minute)
	cache.attemptedAt = cache.refreshedAt
	cache.mu.Unlock()

	if _, err := cache.Key(context.Background(), "k1"); err != nil {
		t.Fatalf("stale lookup: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected a refetch for a stale key set, got %d fetches", hits)
	}
}

func TestKeySetCacheKeepsStaleKeysOnFailedRefresh(t *testing.T) {
	key := generateRSAKey(t)
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(keySetJSON(t, "k1", &key.PublicKey))
	}))
	t.Cleanup(server.Close)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())
	if _, err := cache.Key(context.Background(), "k1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	healthy = false
	cache.mu.Lock()
	cache.refreshedAt = time.Now().Add(-keySetMaxAge - time.Minute)
	cache.attemptedAt = cache.refreshedAt
	cache.mu.Unlock()

	// The refresh fails, but the previously fetched key stays usable.
	got, err := cache.Key(context.Background(), "k1")
	if err != nil {
		t.Fatalf("expected stale key to be served, got %v", err)
	}
	if _, ok := got.(*rsa.PublicKey); !ok {
		t.Fatalf("expected *rsa.PublicKey, got %T", got)
	}
}

// Concurrent lookups against a cold cache share one fetch instead of
// each hitting the provider.
func TestKeySetCacheConcurrentLookupsShareOneFetch(t *testing.T) {
	key := generateRSAKey(t)
	body := keySetJSON(t, "k1", &key.PublicKey)
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())

	const lookups = 8
	errs := make([]error, lookups)
	var wg sync.WaitGroup
	for i := 0; i < lookups; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Key(context.Background(), "k1")
		}(i)
	}

	// Let every goroutine reach the refresh before the server responds.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one shared fetch, got %d", got)
	}
}

func TestKeySetCacheFetchFailure(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())

	_, err := cache.Key(context.Background(), "k1")
	if !errors.Is(err, ErrKeySetUnavailable) {
		t.Fatalf("expected key set unavailable, got %v", err)
	}
	if Classify(err) != CategoryKeySetFetch {
		t.Fatalf("expected %s classification, got %s", CategoryKeySetFetch, Classify(err))
	}
	// One bounded retry.
	if hits != 2 {
		t.Fatalf("expected exactly two fetch attempts, got %d", hits)
	}
}

func TestKeySetCacheSkipsMalformedKeys(t *testing.T) {
	key := generateRSAKey(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := keySetDocument{Keys: []keySetEntry{
			{Kty: "RSA", Kid: "bad", N: "!!not-base64!!", E: "AQAB"},
			{Kty: "EC", Kid: "odd-curve", Crv: "P-111", X: "AA", Y: "AA"},
			{Kty: "RSA", Kid: "good",
				N: base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes())},
		}}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(server.Close)

	cache := NewKeySetCache(server.URL, server.Client(), newTestLogger())

	if _, err := cache.Key(context.Background(), "good"); err != nil {
		t.Fatalf("expected the well-formed key to load, got %v", err)
	}
	if _, err := cache.Key(context.Background(), "bad"); err == nil {
		t.Fatal("expected the malformed key to be skipped")
	}
}

func TestParseECKeyUnsupportedCurve(t *testing.T) {
	if _, err := parseECKey("P-111", "AA", "AA"); err == nil {
		t.Fatal("expected unsupported curve error")
	}
}
