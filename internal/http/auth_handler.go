package http

import (
	"net/http"
	"strings"

	"log/slog"
)

// AuthHandler exposes token-based authentication endpoints.
type AuthHandler struct {
	service authenticator
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Login handles POST /api/auth/login. The client submits the bearer
// token it obtained from the identity provider; the server verifies it
// and resolves (or provisions) the local user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	result, err := h.service.Authenticate(r.Context(), strings.TrimSpace(payload.Token))
	if err != nil {
		writeAuthError(w, err, h.logger)
		return
	}

	h.logger.Info("login successful", "user_id", result.User.ID, "new_user", result.IsNewUser)
	writeData(w, http.StatusOK, map[string]any{
		"user":      result.User,
		"isNewUser": result.IsNewUser,
	})
}

// Me handles GET /api/auth/me, returning the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "TOKEN_REQUIRED", "authentication token is required")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": user})
}
