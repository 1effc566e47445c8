package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = time.Duration(0)
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxPayloadBytes = int64(1048576)

	// CORS defaults
	DefaultCORSEnabled          = true
	DefaultCORSMaxAge           = 3600 // 1 hour
	DefaultCORSAllowCredentials = false

	// Session defaults
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultTurnTimeout      = 30 * time.Second
	DefaultSessionTTL       = time.Hour
	DefaultMaxSessions      = 100
	DefaultCleanupInterval  = 60 * time.Second
	DefaultEvictIdle        = false

	// Rate limit defaults
	DefaultRateLimitEnabled  = true
	DefaultRequestsPerMinute = 60
	DefaultRequestsPerHour   = 1000
	DefaultBurstLimit        = 10

	// Auth defaults
	DefaultAuthEnabled = false
	DefaultAuthHeader  = "X-API-Key"

	// Audit defaults
	DefaultAuditEnabled    = false
	DefaultAuditBackend    = "memory"
	DefaultAuditSQLitePath = "switchboard-audit.db"
	DefaultAuditBufferSize = 1000
	DefaultAuditMaxEvents  = 10000

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultLogFilePath    = "switchboard.log"
	DefaultLogMaxSizeMB   = 100
	DefaultLogMaxBackups  = 3
	DefaultLogMaxAgeDays  = 28
	DefaultMetricsEnabled = false
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills in zero-valued fields with defaults. Booleans whose
// default is true use explicit setters in NewDefaultConfig; ApplyDefaults
// cannot distinguish "false" from "unset" and leaves them alone.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxPayloadBytes == 0 {
		cfg.Server.MaxPayloadBytes = DefaultMaxPayloadBytes
	}

	// CORS
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Key"}
	}
	if len(cfg.Server.CORS.ExposedHeaders) == 0 {
		cfg.Server.CORS.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Session
	if cfg.Session.HandshakeTimeout == 0 {
		cfg.Session.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Session.TurnTimeout == 0 {
		cfg.Session.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = DefaultSessionTTL
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = DefaultMaxSessions
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = DefaultCleanupInterval
	}

	// Rate limit
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RateLimit.RequestsPerHour == 0 {
		cfg.RateLimit.RequestsPerHour = DefaultRequestsPerHour
	}
	if cfg.RateLimit.BurstLimit == 0 {
		cfg.RateLimit.BurstLimit = DefaultBurstLimit
	}

	// Auth
	if cfg.Auth.Header == "" {
		cfg.Auth.Header = DefaultAuthHeader
	}

	// Audit
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditSQLitePath
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = DefaultAuditBufferSize
	}
	if cfg.Audit.MaxEvents == 0 {
		cfg.Audit.MaxEvents = DefaultAuditMaxEvents
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.File.Path == "" {
		cfg.Telemetry.Logging.File.Path = DefaultLogFilePath
	}
	if cfg.Telemetry.Logging.File.MaxSizeMB == 0 {
		cfg.Telemetry.Logging.File.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if cfg.Telemetry.Logging.File.MaxBackups == 0 {
		cfg.Telemetry.Logging.File.MaxBackups = DefaultLogMaxBackups
	}
	if cfg.Telemetry.Logging.File.MaxAgeDays == 0 {
		cfg.Telemetry.Logging.File.MaxAgeDays = DefaultLogMaxAgeDays
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

// NewDefaultConfig returns a configuration with every field at its default.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.CORS.Enabled = DefaultCORSEnabled
	cfg.RateLimit.Enabled = DefaultRateLimitEnabled
	ApplyDefaults(cfg)
	return cfg
}
