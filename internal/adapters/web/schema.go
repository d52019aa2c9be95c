package web

import (
	"net/http"

	"warehouse-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"
)

// payloadSchemas maps schema names to the request payloads API clients can
// introspect before posting.
var payloadSchemas = map[string]any{
	"create-item":    app.CreateItemRequest{},
	"submit-request": app.SubmitRequestRequest{},
	"list-requests":  app.ListRequestsFilter{},
}

// payloadSchema serves the JSON Schema for a named request payload.
func (h *Handler) payloadSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	payload, ok := payloadSchemas[name]
	if !ok {
		writeError(w, r, "unknown schema "+name, "SCHEMA_NOT_FOUND", http.StatusNotFound)
		return
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	writeJSON(w, reflector.Reflect(payload))
}
