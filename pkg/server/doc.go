// Package server wires the configuration, session manager, adapters,
// handlers, and middleware chain into the HTTP server, and owns graceful
// shutdown: the HTTP listener drains first, then the session manager closes
// every session so suspended callers are released.
package server
