package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tasknest/internal/auth"
	"tasknest/internal/config"
	"tasknest/internal/tasks"
	"tasknest/internal/token"
)

// staticVerifier resolves a fixed set of tokens to payloads, standing in
// for the identity provider.
type staticVerifier struct {
	payloads map[string]*token.Payload
}

func (v *staticVerifier) Verify(_ context.Context, raw string) (*token.Payload, error) {
	payload, ok := v.payloads[raw]
	if !ok {
		return nil, token.NewError(token.CategoryInvalidSignature, nil)
	}
	return payload, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	verifier := &staticVerifier{payloads: map[string]*token.Payload{
		"tok-kira": {
			Subject:      "ext-kira",
			Email:        "kira@example.com",
			UserMetadata: map[string]any{"full_name": "Kira Vale"},
			AppMetadata:  map[string]any{"provider": "google"},
		},
	}}

	cfg := config.Config{
		Environment:    "test",
		AllowedOrigins: []string{"http://localhost:4200"},
	}
	authSvc := auth.NewService(verifier, auth.NewInMemoryRepository(), testLogger())
	taskSvc := tasks.NewService(tasks.NewInMemoryRepository())
	return NewRouter(cfg, authSvc, taskSvc, testLogger())
}

func doJSON(t *testing.T, router http.Handler, method, path, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}
}

func TestTasksRequireAuthentication(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/tasks", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/tasks", "tok-unknown", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	// First sign-in provisions the user.
	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", `{"token":"tok-kira"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/tasks", "tok-kira", `{"title":"ship the release"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created tasks.Task
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("decode created task: %v", err)
	}
	if created.Title != "ship the release" || created.Status != tasks.StatusOpen {
		t.Fatalf("unexpected task: %+v", created)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/tasks", "tok-kira", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var listing struct {
		Tasks []tasks.Task `json:"tasks"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Tasks) != 1 || listing.Tasks[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listing.Tasks)
	}

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%s", created.ID), "tok-kira", `{"status":"done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated tasks.Task
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &updated); err != nil {
		t.Fatalf("decode updated task: %v", err)
	}
	if updated.Status != tasks.StatusDone {
		t.Fatalf("expected done status, got %q", updated.Status)
	}

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/tasks/%s", created.ID), "tok-kira", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/tasks/%s", created.ID), "tok-kira", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestTaskValidationOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tasks", "tok-kira", `{"title":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION error, got %+v", env.Error)
	}
}

func TestTaskInvalidIDOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/tasks/not-a-uuid", "tok-kira", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMeOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/auth/me", "tok-kira", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		User *auth.User `json:"user"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.User == nil || data.User.Email != "kira@example.com" {
		t.Fatalf("unexpected user: %+v", data.User)
	}
}
