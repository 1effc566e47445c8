package handlers

import (
	"net/http"
	"strconv"

	"switchboard-hq/switchboard/pkg/audit"
	"switchboard-hq/switchboard/pkg/proxy"
	"switchboard-hq/switchboard/pkg/rendezvous"
)

// SessionsHandler serves the redacted session directory snapshot. The
// listing carries ids, states, ages, and turn counts; never content.
type SessionsHandler struct {
	sessions *rendezvous.Manager
}

// NewSessionsHandler creates the admin sessions handler.
func NewSessionsHandler(sessions *rendezvous.Manager) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// ServeHTTP implements http.Handler.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.sessions.Snapshot()
	response := map[string]interface{}{
		"sessions": snapshot,
		"count":    len(snapshot),
	}

	_ = proxy.WriteJSON(w, http.StatusOK, response)
}

// defaultEventLimit caps the events listing when no limit is given.
const defaultEventLimit = 100

// EventsHandler serves recent audit journal events.
type EventsHandler struct {
	recorder *audit.Recorder
}

// NewEventsHandler creates the admin events handler. recorder may be nil
// when the journal is disabled; the endpoint then reports 404.
func NewEventsHandler(recorder *audit.Recorder) *EventsHandler {
	return &EventsHandler{recorder: recorder}
}

// ServeHTTP implements http.Handler.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.recorder == nil {
		http.Error(w, "Audit journal is disabled", http.StatusNotFound)
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to read audit events", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"events":  events,
		"count":   len(events),
		"dropped": h.recorder.Dropped(),
	}

	_ = proxy.WriteJSON(w, http.StatusOK, response)
}
