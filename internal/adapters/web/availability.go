package web

import (
	"net/http"
	"time"
)

// dateParam parses a YYYY-MM-DD query parameter. A missing value returns the
// fallback; a malformed one writes the error response and returns false.
func dateParam(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, r, "invalid "+name+" parameter, want YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

func (h *Handler) itemAvailabilityInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	info, err := h.svc.GetItemAvailabilityInfo(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, info)
}

func (h *Handler) availablePeriods(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	now := time.Now()
	from, ok := dateParam(w, r, "from", now)
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to", now.AddDate(0, 0, 30))
	if !ok {
		return
	}
	windows, err := h.svc.GetAvailablePeriods(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, windows)
}

func (h *Handler) nextAvailableDate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	next, err := h.svc.GetNextAvailableDate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		NextAvailableDate *string `json:"next_available_date"`
	}
	var resp response
	if next != nil {
		s := next.Format("2006-01-02")
		resp.NextAvailableDate = &s
	}
	writeJSON(w, resp)
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, r, "invalid start_date, want YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, r, "invalid end_date, want YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	check, err := h.svc.CheckAvailability(r.Context(), id, start, end, req.Quantity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, check)
}
