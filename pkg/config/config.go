package config

import "time"

// Config is the root configuration structure for Switchboard.
type Config struct {
	// Server contains HTTP server settings: listen address, timeouts, body
	// cap, and CORS.
	Server ServerConfig `yaml:"server"`

	// Session contains the rendezvous core settings: budgets, TTL, capacity.
	Session SessionConfig `yaml:"session"`

	// RateLimit contains per-client request quotas.
	RateLimit RateLimitConfig `yaml:"ratelimit"`

	// Auth contains optional API key authentication settings.
	Auth AuthConfig `yaml:"auth"`

	// Audit contains the redacted session-event journal settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. It must comfortably exceed the session budgets, since turn
	// requests long-poll; zero disables it.
	// Default: 0 (disabled)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes caps request header size.
	// Default: 1048576
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxPayloadBytes caps the request body; larger bodies are rejected
	// with payload_too_large before decoding.
	// Default: 1048576
	MaxPayloadBytes int64 `yaml:"max_payload_bytes"`

	// CORS contains Cross-Origin Resource Sharing settings.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins; ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID", "X-API-Key"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders lists headers exposed to clients.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache age in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials allows cookies and auth headers cross-origin.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// SessionConfig contains the rendezvous core settings.
type SessionConfig struct {
	// HandshakeTimeout is the maximum wait for Side B to arrive after
	// Side A's ping.
	// Default: 30s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// TurnTimeout is the maximum wait for a peer utterance per turn.
	// Default: 30s
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// TTL is the idle duration before the sweep closes a session.
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// MaxSessions is the hard directory capacity.
	// Default: 100
	MaxSessions int `yaml:"max_sessions"`

	// CleanupInterval is the sweep period.
	// Default: 60s
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// EvictIdle lets a new session evict the idlest one when the directory
	// is full, instead of failing with overloaded.
	// Default: false
	EvictIdle bool `yaml:"evict_idle"`
}

// RateLimitConfig contains per-client request quotas, keyed by client IP.
type RateLimitConfig struct {
	// Enabled controls whether the rate limiting middleware is installed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RequestsPerMinute is the rolling one-minute quota.
	// Default: 60
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// RequestsPerHour is the rolling one-hour quota.
	// Default: 1000
	RequestsPerHour int `yaml:"requests_per_hour"`

	// BurstLimit is the ten-second burst quota.
	// Default: 10
	BurstLimit int `yaml:"burst_limit"`
}

// AuthConfig contains optional API key authentication.
type AuthConfig struct {
	// Enabled controls whether the auth middleware is installed.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header is the header carrying the API key.
	// Default: "X-API-Key"
	Header string `yaml:"header"`

	// APIKeys lists the accepted keys.
	APIKeys []string `yaml:"api_keys"`
}

// AuditConfig contains the redacted session-event journal settings.
type AuditConfig struct {
	// Enabled controls whether lifecycle events are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the journal store: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	// Default: "switchboard-audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BufferSize is the async recorder's channel capacity; events beyond it
	// are dropped and counted.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// MaxEvents caps the memory backend's ring buffer.
	// Default: 10000
	MaxEvents int `yaml:"max_events"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// File contains optional rotating file output.
	File LogFileConfig `yaml:"file"`
}

// LogFileConfig contains rotating file output settings.
type LogFileConfig struct {
	// Enabled writes logs to a rotating file instead of stderr.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the log file location.
	// Default: "switchboard.log"
	Path string `yaml:"path"`

	// MaxSizeMB rotates the file after it reaches this size.
	// Default: 100
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	// Default: 3
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays removes rotated files older than this.
	// Default: 28
	MaxAgeDays int `yaml:"max_age_days"`

	// Compress gzips rotated files.
	// Default: false
	Compress bool `yaml:"compress"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled gates the /metrics endpoint.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
