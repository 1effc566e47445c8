// Package handlers contains the HTTP handlers: the turn handler that drives
// one rendezvous exchange per request, the liveness endpoint, and the
// redacted admin surface.
package handlers
