package web

import (
	"net/http"

	"warehouse-engine/internal/core"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Users []core.User `json:"users"`
	}
	writeJSON(w, response{Users: users})
}
