// Package types defines the wire-level error taxonomy shared by the
// rendezvous core and the HTTP layer.
//
// Errors form a closed set of kinds, each with a stable HTTP status and a
// uniform JSON body. They are produced at well-defined sites (adapters,
// sessions, the session directory, middleware) and propagated unmodified to
// the HTTP boundary, where the turn handler serializes them.
package types
