package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/parley-chat/parley/internal/models"
)

// PostMessageRequest represents the message post request body. The sender is
// taken from the user header, never from the body.
type PostMessageRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"required,oneof=message private_message"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

// PostMessage handles posting a public or private message.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	from := r.Header.Get("user")
	if from == "" {
		h.Error(w, http.StatusUnprocessableEntity, "user header is required")
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.Error(w, http.StatusUnprocessableEntity, "to, text and a valid type are required")
		return
	}

	m, err := h.log.Post(r.Context(), from, req.To, req.Text, req.Type)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, toMessageResponse(*m))
}

// ListMessages handles polling for messages visible to the requesting user.
// The limit query parameter is mandatory and must be a positive integer.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get("user")

	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		h.Error(w, http.StatusUnprocessableEntity, "limit is required")
		return
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		h.Error(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
		return
	}

	messages, err := h.log.List(r.Context(), user, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.JSON(w, http.StatusOK, lo.Map(messages, func(m models.Message, _ int) MessageResponse {
		return toMessageResponse(m)
	}))
}

func toMessageResponse(m models.Message) MessageResponse {
	return MessageResponse{
		ID:   m.ID,
		From: m.From,
		To:   m.To,
		Text: m.Text,
		Type: m.Type,
		Time: m.Time,
	}
}
