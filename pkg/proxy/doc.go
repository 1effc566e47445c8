// Package proxy provides the HTTP plumbing shared by the turn handlers:
// capped body reading, JSON response writing, and the mapping from taxonomy
// errors to status codes and the uniform error body.
package proxy
