package web

import (
	"net/http"
	"strconv"

	"warehouse-engine/internal/app"
)

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := app.ListRequestsFilter{Status: q.Get("status")}
	if raw := q.Get("item_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "invalid item_id parameter", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.ItemID = id
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "invalid user_id parameter", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.UserID = id
	}

	res, err := h.svc.ListRequests(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, err := h.svc.GetRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, req)
}

func (h *Handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	var req app.SubmitRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SubmitRequest(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !res.Accepted {
		// Refusals are business outcomes: 409 with the full check attached.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		writeJSON(w, res)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, res)
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		ApproverID int `json:"approver_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ApproverID <= 0 {
		writeError(w, r, "approver_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	res, err := h.svc.ApproveRequest(r.Context(), id, req.ApproverID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		ApproverID int    `json:"approver_id"`
		Reason     string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ApproverID <= 0 {
		writeError(w, r, "approver_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	res, err := h.svc.RejectRequest(r.Context(), id, req.ApproverID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) markReturned(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.MarkReturned(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
