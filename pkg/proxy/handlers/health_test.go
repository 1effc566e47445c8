package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandler(t *testing.T) {
	m := newTestManager(5*time.Second, 5*time.Second, 10)
	defer m.Shutdown()
	m.GetOrCreate("one")
	m.GetOrCreate("two")

	h := NewHealthHandler(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status         string  `json:"status"`
		UptimeSeconds  float64 `json:"uptime_seconds"`
		ActiveSessions int     `json:"active_sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.UptimeSeconds < 0 {
		t.Errorf("uptime = %f, want >= 0", body.UptimeSeconds)
	}
	if body.ActiveSessions != 2 {
		t.Errorf("active sessions = %d, want 2", body.ActiveSessions)
	}
}

func TestHealthHandlerRejectsPost(t *testing.T) {
	m := newTestManager(5*time.Second, 5*time.Second, 10)
	defer m.Shutdown()

	rec := httptest.NewRecorder()
	NewHealthHandler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
