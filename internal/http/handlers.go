package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"log/slog"

	"tasknest/internal/identity"
	"tasknest/internal/tasks"
	"tasknest/internal/token"
)

// apiError is the error half of the response envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeData wraps payload in the success envelope.
func writeData(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    payload,
	})
}

// writeError wraps code and message in the failure envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   apiError{Code: code, Message: message},
	})
}

// writeAuthError maps authentication failures to envelope responses.
// Verification errors surface only their category and fixed message;
// anything unclassified is treated as an internal failure.
func writeAuthError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var terr *token.Error
	if errors.As(err, &terr) {
		status := http.StatusUnauthorized
		if terr.Category == token.CategoryKeySetFetch {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, string(terr.Category), terr.Error())
		return
	}

	var merr *identity.MissingFieldError
	if errors.As(err, &merr) {
		writeError(w, http.StatusUnauthorized, merr.Code(), merr.Error())
		return
	}

	logger.Error("authentication failed", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error")
}

func handleTaskError(w http.ResponseWriter, err error, logger *slog.Logger) {
	if errors.Is(err, tasks.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "task not found")
		return
	}
	if errors.Is(err, tasks.ErrValidation) {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	logger.Error("task service error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error")
}

const maxJSONBodyBytes int64 = 1 << 20 // 1 MiB

var errPayloadTooLarge = errors.New("payload too large")

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	limited := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() {
		_ = limited.Close()
	}()

	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w (max %d bytes)", errPayloadTooLarge, maxErr.Limit)
		}
		return err
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, err error) {
	if errors.Is(err, errPayloadTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload too large")
		return
	}
	// Generic message to avoid leaking JSON parsing details
	writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
}
