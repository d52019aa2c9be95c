package web

import (
	"net/http"
	"strconv"

	"warehouse-engine/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	// 1 MB body limit to prevent unbounded request abuse.
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20))

		// ── Inventory ─────────────────────────────────────────────────────────
		r.Get("/api/items", h.listItems)
		r.Post("/api/items", h.createItem)
		r.Post("/api/items/refresh-statuses", h.refreshItemStatuses)
		r.Get("/api/items/{id}", h.getItem)
		r.Patch("/api/items/{id}/status", h.updateItemStatus)

		// ── Availability ──────────────────────────────────────────────────────
		r.Get("/api/items/{id}/availability", h.itemAvailabilityInfo)
		r.Get("/api/items/{id}/availability/periods", h.availablePeriods)
		r.Get("/api/items/{id}/availability/next-date", h.nextAvailableDate)
		r.Post("/api/items/{id}/availability/check", h.checkAvailability)

		// ── Requests ──────────────────────────────────────────────────────────
		r.Get("/api/requests", h.listRequests)
		r.Post("/api/requests", h.submitRequest)
		r.Get("/api/requests/{id}", h.getRequest)
		r.Post("/api/requests/{id}/approve", h.approveRequest)
		r.Post("/api/requests/{id}/reject", h.rejectRequest)
		r.Post("/api/requests/{id}/return", h.markReturned)

		// ── Users ─────────────────────────────────────────────────────────────
		r.Get("/api/users", h.listUsers)

		// ── Payload schemas ───────────────────────────────────────────────────
		r.Get("/api/schemas/{name}", h.payloadSchema)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// idParam extracts and parses the {id} URL parameter. On failure it writes
// the error response and returns false.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
