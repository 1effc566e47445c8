// Package middleware provides the HTTP middleware chain around the turn
// handlers: correlation ids, request logging, panic recovery, CORS,
// per-client rate limiting, and optional API key authentication.
package middleware
