package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// SWITCHBOARD_* environment variable overrides. Environment variables always
// take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Variables follow
// the naming convention SWITCHBOARD_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	setString("SWITCHBOARD_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("SWITCHBOARD_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("SWITCHBOARD_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("SWITCHBOARD_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("SWITCHBOARD_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	setInt("SWITCHBOARD_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	setInt64("SWITCHBOARD_SERVER_MAX_PAYLOAD_BYTES", &cfg.Server.MaxPayloadBytes)

	// Session overrides
	setDuration("SWITCHBOARD_SESSION_HANDSHAKE_TIMEOUT", &cfg.Session.HandshakeTimeout)
	setDuration("SWITCHBOARD_SESSION_TURN_TIMEOUT", &cfg.Session.TurnTimeout)
	setDuration("SWITCHBOARD_SESSION_TTL", &cfg.Session.TTL)
	setInt("SWITCHBOARD_SESSION_MAX_SESSIONS", &cfg.Session.MaxSessions)
	setDuration("SWITCHBOARD_SESSION_CLEANUP_INTERVAL", &cfg.Session.CleanupInterval)
	setBool("SWITCHBOARD_SESSION_EVICT_IDLE", &cfg.Session.EvictIdle)

	// Rate limit overrides
	setBool("SWITCHBOARD_RATELIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setInt("SWITCHBOARD_RATELIMIT_REQUESTS_PER_MINUTE", &cfg.RateLimit.RequestsPerMinute)
	setInt("SWITCHBOARD_RATELIMIT_REQUESTS_PER_HOUR", &cfg.RateLimit.RequestsPerHour)
	setInt("SWITCHBOARD_RATELIMIT_BURST_LIMIT", &cfg.RateLimit.BurstLimit)

	// Auth overrides
	setBool("SWITCHBOARD_AUTH_ENABLED", &cfg.Auth.Enabled)
	setString("SWITCHBOARD_AUTH_HEADER", &cfg.Auth.Header)
	if val := os.Getenv("SWITCHBOARD_AUTH_API_KEYS"); val != "" {
		keys := strings.Split(val, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
		cfg.Auth.APIKeys = keys
	}

	// Audit overrides
	setBool("SWITCHBOARD_AUDIT_ENABLED", &cfg.Audit.Enabled)
	setString("SWITCHBOARD_AUDIT_BACKEND", &cfg.Audit.Backend)
	setString("SWITCHBOARD_AUDIT_SQLITE_PATH", &cfg.Audit.SQLitePath)
	setInt("SWITCHBOARD_AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)

	// Telemetry overrides
	setString("SWITCHBOARD_LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("SWITCHBOARD_LOG_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("SWITCHBOARD_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("SWITCHBOARD_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setInt64(key string, dst *int64) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
