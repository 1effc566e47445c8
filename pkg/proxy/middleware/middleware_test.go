package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"switchboard-hq/switchboard/pkg/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	RequestIDMiddleware(inner).ServeHTTP(rec, req)

	if seen == "" {
		t.Error("no request id in context")
	}
	if echoed := rec.Header().Get(RequestIDHeader); echoed != seen {
		t.Errorf("response header = %q, context id = %q", echoed, seen)
	}
	if len(seen) != 32 {
		t.Errorf("generated id length = %d, want 32 hex chars", len(seen))
	}
}

func TestRequestIDHonorsInbound(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	RequestIDMiddleware(inner).ServeHTTP(rec, req)

	if seen != "client-supplied-id" {
		t.Errorf("context id = %q, want client-supplied-id", seen)
	}
	if echoed := rec.Header().Get(RequestIDHeader); echoed != "client-supplied-id" {
		t.Errorf("response header = %q, want client-supplied-id", echoed)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	RecoveryMiddleware(panicking).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var body map[string]map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body["error"]["type"] != "internal" {
		t.Errorf("error type = %q, want internal", body["error"]["type"])
	}
	if body["error"]["message"] == "boom" {
		t.Error("panic detail leaked to client")
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://example.com"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	req.Header.Set("Origin", "https://example.com")
	CORSMiddleware(cfg)(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("max-age = %q, want 600", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	cfg := &config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://example.com"},
		AllowedMethods: []string{"POST"},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	CORSMiddleware(cfg)(okHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q for disallowed origin", got)
	}
}

func TestRateLimitBurst(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 100,
		RequestsPerHour:   1000,
		BurstLimit:        3,
	})
	handler := RateLimitMiddleware(limiter)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("burst overflow status = %d, want 429", rec.Code)
	}

	var body map[string]map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body["error"]["type"] != "rate_limited" {
		t.Errorf("error type = %q, want rate_limited", body["error"]["type"])
	}

	// A different client is unaffected.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec2.Code)
	}
}

func TestRateLimitExemptsOperationalPaths(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		RequestsPerHour:   1,
		BurstLimit:        1,
	})
	handler := RateLimitMiddleware(limiter)(okHandler())

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("health request %d status = %d, want 200", i, rec.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.AuthConfig{
		Enabled: true,
		Header:  "X-API-Key",
		APIKeys: []string{"sk-valid"},
	}
	handler := AuthMiddleware(cfg)(okHandler())

	tests := []struct {
		name       string
		key        string
		path       string
		wantStatus int
	}{
		{name: "valid key", key: "sk-valid", path: "/v1/chat/completions", wantStatus: 200},
		{name: "missing key", key: "", path: "/v1/chat/completions", wantStatus: 401},
		{name: "invalid key", key: "sk-wrong", path: "/v1/chat/completions", wantStatus: 401},
		{name: "health exempt", key: "", path: "/health", wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.7:5555", want: "192.0.2.7"},
		{name: "forwarded single", remoteAddr: "10.0.0.1:1", forwarded: "203.0.113.9", want: "203.0.113.9"},
		{name: "forwarded chain", remoteAddr: "10.0.0.1:1", forwarded: "203.0.113.9, 10.0.0.2", want: "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
