package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"switchboard-hq/switchboard/pkg/config"
	"switchboard-hq/switchboard/pkg/proxy/types"
)

// AuthMiddleware enforces API key authentication from a configurable header.
// Keys are compared in constant time. Operational endpoints (/health,
// /metrics) stay open for probes and scrapes.
func AuthMiddleware(cfg *config.AuthConfig) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "middleware.auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(cfg.Header)
			if key == "" {
				logger.Warn("missing API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, types.CodeMissingAPIKey, "Missing API key")
				return
			}

			if !keyAccepted(key, cfg.APIKeys) {
				logger.Warn("invalid API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, types.CodeInvalidAPIKey, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// keyAccepted compares the presented key against every configured key in
// constant time.
func keyAccepted(presented string, accepted []string) bool {
	ok := false
	for _, key := range accepted {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

// writeAuthError writes a 401 in the uniform error format.
func writeAuthError(w http.ResponseWriter, code, message string) {
	errResp := types.NewError(types.KindUnauthorized, code, message).Response()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	writeJSONBody(w, errResp)
}
