package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one member of the closed error taxonomy. Every error that
// reaches the HTTP boundary carries exactly one Kind, and the Kind alone
// determines the response status code.
type Kind string

const (
	// KindInvalidRequest indicates a payload that decoded but violates
	// semantic rules (empty session id, missing last user message).
	KindInvalidRequest Kind = "invalid_request"

	// KindSchemaError indicates a payload that cannot be decoded into the
	// adapter's input schema.
	KindSchemaError Kind = "schema_error"

	// KindPayloadTooLarge indicates a body exceeding the configured size cap.
	KindPayloadTooLarge Kind = "payload_too_large"

	// KindTimeout indicates a handshake or turn that waited longer than its
	// configured budget.
	KindTimeout Kind = "timeout"

	// KindSessionConflict indicates a second concurrent request on a side
	// that already has one in flight, or a third participant attempt.
	KindSessionConflict Kind = "session_conflict"

	// KindSessionGone indicates the target session was evicted or closed
	// while the request was pending.
	KindSessionGone Kind = "session_gone"

	// KindOverloaded indicates the max-sessions quota is reached and no
	// eviction candidate is available.
	KindOverloaded Kind = "overloaded"

	// KindUnauthorized indicates a missing or invalid API key.
	KindUnauthorized Kind = "unauthorized"

	// KindRateLimited indicates the client exceeded its request quota.
	KindRateLimited Kind = "rate_limited"

	// KindInternal is the catch-all for unexpected failures.
	KindInternal Kind = "internal"
)

// Error code constants for common situations within a kind.
const (
	CodeInvalidJSON       = "invalid_json"
	CodeInvalidSchema     = "invalid_schema"
	CodeSessionIDEmpty    = "session_id_empty"
	CodeNoUserMessage     = "no_user_message"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodePayloadTooLarge   = "payload_too_large"
	CodeHandshakeTimeout  = "handshake_timeout"
	CodeTurnTimeout       = "turn_timeout"
	CodeSideBusy          = "side_busy"
	CodeThirdParticipant  = "third_participant"
	CodeSessionClosed     = "session_closed"
	CodeMaxSessions       = "max_sessions"
	CodeMissingAPIKey     = "missing_api_key"
	CodeInvalidAPIKey     = "invalid_api_key"
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeInternalError     = "internal_error"
)

// Error is the taxonomy error type. It travels unchanged from its production
// site to the HTTP boundary, where the turn handler maps it to a status code
// and the uniform wire body.
type Error struct {
	// Kind is the taxonomy member.
	Kind Kind

	// Code identifies the specific situation within the kind.
	Code string

	// Message is human-readable.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code for the error's kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindSchemaError:
		return http.StatusUnprocessableEntity
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindSessionConflict:
		return http.StatusConflict
	case KindSessionGone:
		return http.StatusGone
	case KindOverloaded:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Response converts the error to its wire form.
func (e *Error) Response() *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: e.Message,
			Type:    string(e.Kind),
			Code:    e.Code,
		},
	}
}

// NewError creates a taxonomy error.
func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NewInvalidRequestError creates an invalid_request error (400).
func NewInvalidRequestError(code, message string) *Error {
	return NewError(KindInvalidRequest, code, message)
}

// NewSchemaError creates a schema_error error (422).
func NewSchemaError(code, message string) *Error {
	return NewError(KindSchemaError, code, message)
}

// NewPayloadTooLargeError creates a payload_too_large error (413).
func NewPayloadTooLargeError(limit int64) *Error {
	return NewError(KindPayloadTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("request body exceeds maximum size of %d bytes", limit))
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(code, message string) *Error {
	return NewError(KindTimeout, code, message)
}

// NewSessionConflictError creates a session_conflict error (409).
func NewSessionConflictError(code, message string) *Error {
	return NewError(KindSessionConflict, code, message)
}

// NewSessionGoneError creates a session_gone error (410).
func NewSessionGoneError(message string) *Error {
	return NewError(KindSessionGone, CodeSessionClosed, message)
}

// NewOverloadedError creates an overloaded error (503).
func NewOverloadedError(message string) *Error {
	return NewError(KindOverloaded, CodeMaxSessions, message)
}

// NewInternalError creates an internal error (500). The message is intentionally
// generic; details belong in the log, keyed by the correlation id.
func NewInternalError() *Error {
	return NewError(KindInternal, CodeInternalError,
		"An internal error occurred. Please try again later.")
}

// FromError extracts a taxonomy error from err. Any error that is not a
// *Error is treated as internal.
func FromError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternalError()
}

// ErrorResponse is the uniform error wire body:
// {"error":{"message":...,"type":...,"code":...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error fields exposed on the wire.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type is the taxonomy kind.
	Type string `json:"type"`

	// Code identifies the specific situation.
	Code string `json:"code,omitempty"`
}
