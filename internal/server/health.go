package server

import (
	"net/http"
)

// HealthHandler answers liveness probes. Implements the Handler interface.
type HealthHandler struct {
	service string
}

// NewHealthHandler creates a health handler reporting the given service name.
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/", "/health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/health" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": h.service})
}
