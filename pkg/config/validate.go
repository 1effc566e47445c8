package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field.
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects all validation failures in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server, &cfg.Session)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration. Turn requests long-poll up
// to a full budget, so a nonzero write timeout must exceed both budgets.
func validateServer(cfg *ServerConfig, session *SessionConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.MaxPayloadBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_payload_bytes",
			Message: "must be positive",
		})
	}
	if cfg.WriteTimeout > 0 {
		budget := session.HandshakeTimeout
		if session.TurnTimeout > budget {
			budget = session.TurnTimeout
		}
		if cfg.WriteTimeout <= budget {
			errs = append(errs, FieldError{
				Field: "server.write_timeout",
				Message: fmt.Sprintf(
					"must exceed the largest session budget (%s) or be 0; long-polling turns would be cut off",
					budget),
			})
		}
	}

	return errs
}

// validateSession validates the rendezvous settings.
func validateSession(cfg *SessionConfig) []FieldError {
	var errs []FieldError

	if cfg.HandshakeTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.handshake_timeout",
			Message: "must be positive",
		})
	}
	if cfg.TurnTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.turn_timeout",
			Message: "must be positive",
		})
	}
	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.ttl",
			Message: "must be positive",
		})
	}
	if cfg.MaxSessions <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.max_sessions",
			Message: "must be positive",
		})
	}
	if cfg.CleanupInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.cleanup_interval",
			Message: "must be positive",
		})
	}

	return errs
}

// validateRateLimit validates the rate limit quotas.
func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	if cfg.RequestsPerMinute <= 0 {
		errs = append(errs, FieldError{
			Field:   "ratelimit.requests_per_minute",
			Message: "must be positive when rate limiting is enabled",
		})
	}
	if cfg.RequestsPerHour <= 0 {
		errs = append(errs, FieldError{
			Field:   "ratelimit.requests_per_hour",
			Message: "must be positive when rate limiting is enabled",
		})
	}
	if cfg.BurstLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "ratelimit.burst_limit",
			Message: "must be positive when rate limiting is enabled",
		})
	}

	return errs
}

// validateAuth validates the auth settings.
func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && len(cfg.APIKeys) == 0 {
		errs = append(errs, FieldError{
			Field:   "auth.api_keys",
			Message: "at least one API key is required when auth is enabled",
		})
	}
	if cfg.Enabled && cfg.Header == "" {
		errs = append(errs, FieldError{
			Field:   "auth.header",
			Message: "header name is required when auth is enabled",
		})
	}

	return errs
}

// validateAudit validates the audit journal settings.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("unknown backend %q (expected \"memory\" or \"sqlite\")", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "audit.sqlite_path",
			Message: "database path is required for the sqlite backend",
		})
	}
	if cfg.BufferSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.buffer_size",
			Message: "must be positive",
		})
	}

	return errs
}

// validateTelemetry validates logging and metrics settings.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (expected debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (expected json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "must start with /",
		})
	}

	return errs
}
