package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	registry *chat.Registry
	log      *chat.MessageLog
	store    store.DataStore
	validate *validator.Validate
}

// NewHandler creates a new Handler wired to the core components.
func NewHandler(registry *chat.Registry, log *chat.MessageLog, st store.DataStore) *Handler {
	return &Handler{
		registry: registry,
		log:      log,
		store:    st,
		validate: validator.New(),
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// writeError maps core errors onto surface status codes. Validation and
// conflict failures are expected and not logged.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		h.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, chat.ErrConflict):
		h.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		h.Error(w, http.StatusNotFound, err.Error())
	default:
		h.Error(w, http.StatusInternalServerError, err.Error())
	}
}
