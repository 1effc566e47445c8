package handlers

import (
	"net/http"
	"time"

	"switchboard-hq/switchboard/pkg/proxy"
	"switchboard-hq/switchboard/pkg/rendezvous"
)

// HealthHandler serves the liveness endpoint with uptime and the active
// session count.
type HealthHandler struct {
	sessions  *rendezvous.Manager
	startTime time.Time
}

// NewHealthHandler creates the liveness handler.
func NewHealthHandler(sessions *rendezvous.Manager) *HealthHandler {
	return &HealthHandler{
		sessions:  sessions,
		startTime: time.Now(),
	}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":          "ok",
		"uptime_seconds":  time.Since(h.startTime).Seconds(),
		"active_sessions": h.sessions.Count(),
	}

	_ = proxy.WriteJSON(w, http.StatusOK, response)
}
