package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tasknest/internal/tasks"
)

// TaskHandler exposes task CRUD endpoints.
type TaskHandler struct {
	service *tasks.Service
	logger  *slog.Logger
}

// NewTaskHandler creates a handler.
func NewTaskHandler(service *tasks.Service, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

// List returns the authenticated user's tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	list, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		handleTaskError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"tasks": list})
}

// Create stores a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var payload struct {
		Title string     `json:"title"`
		Notes string     `json:"notes"`
		DueAt *time.Time `json:"dueAt"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	task, err := h.service.Create(r.Context(), user.ID, tasks.CreateTaskInput{
		Title: payload.Title,
		Notes: payload.Notes,
		DueAt: payload.DueAt,
	})
	if err != nil {
		handleTaskError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, task)
}

// Get returns a single task.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), user.ID, id)
	if err != nil {
		handleTaskError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, task)
}

// Update applies changes to an existing task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var payload struct {
		Title  *string       `json:"title"`
		Notes  *string       `json:"notes"`
		Status *tasks.Status `json:"status"`
		DueAt  *time.Time    `json:"dueAt"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	task, err := h.service.Update(r.Context(), user.ID, id, tasks.UpdateTaskInput{
		Title:  payload.Title,
		Notes:  payload.Notes,
		Status: payload.Status,
		DueAt:  payload.DueAt,
	})
	if err != nil {
		handleTaskError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		handleTaskError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	value := chi.URLParam(r, key)
	id, err := uuid.Parse(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
