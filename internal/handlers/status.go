package handlers

import (
	"net/http"
)

// RefreshStatus handles the presence heartbeat. A missing user header and an
// unknown participant get the same 404 signal.
func (h *Handler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get("user")
	if user == "" {
		h.Error(w, http.StatusNotFound, "user header is required")
		return
	}

	if err := h.registry.RefreshPresence(r.Context(), user); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
