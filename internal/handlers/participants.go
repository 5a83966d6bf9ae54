package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/samber/lo"

	"github.com/parley-chat/parley/internal/models"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name string `json:"name" validate:"required"`
}

// ParticipantResponse serializes lastStatus as Unix milliseconds.
type ParticipantResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

// RegisterParticipant handles participant registration.
func (h *Handler) RegisterParticipant(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	p, err := h.registry.Register(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, toParticipantResponse(*p))
}

// ListParticipants handles listing all current participants. An empty
// registry yields an empty array, never an absent body.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.registry.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, lo.Map(participants, func(p models.Participant, _ int) ParticipantResponse {
		return toParticipantResponse(p)
	}))
}

func toParticipantResponse(p models.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:         p.ID.String(),
		Name:       p.Name,
		LastStatus: p.LastStatus.UnixMilli(),
	}
}
