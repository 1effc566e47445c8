package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
session:
  handshake_timeout: 45s
  turn_timeout: 20s
  ttl: 30m
  max_sessions: 50
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %q, want 0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Session.HandshakeTimeout != 45*time.Second {
		t.Errorf("handshake timeout = %v, want 45s", cfg.Session.HandshakeTimeout)
	}
	if cfg.Session.TurnTimeout != 20*time.Second {
		t.Errorf("turn timeout = %v, want 20s", cfg.Session.TurnTimeout)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("ttl = %v, want 30m", cfg.Session.TTL)
	}
	if cfg.Session.MaxSessions != 50 {
		t.Errorf("max sessions = %d, want 50", cfg.Session.MaxSessions)
	}

	// Unset fields take defaults.
	if cfg.Session.CleanupInterval != DefaultCleanupInterval {
		t.Errorf("cleanup interval = %v, want default %v", cfg.Session.CleanupInterval, DefaultCleanupInterval)
	}
	if cfg.Server.MaxPayloadBytes != DefaultMaxPayloadBytes {
		t.Errorf("max payload = %d, want default %d", cfg.Server.MaxPayloadBytes, DefaultMaxPayloadBytes)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a map")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := writeConfigFile(t, `
session:
  handshake_timeout: -5s
`)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected validation error for negative timeout")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8080"
session:
  turn_timeout: 30s
`)

	t.Setenv("SWITCHBOARD_SERVER_LISTEN_ADDRESS", "0.0.0.0:7070")
	t.Setenv("SWITCHBOARD_SESSION_TURN_TIMEOUT", "90s")
	t.Setenv("SWITCHBOARD_SESSION_MAX_SESSIONS", "7")
	t.Setenv("SWITCHBOARD_RATELIMIT_ENABLED", "false")
	t.Setenv("SWITCHBOARD_AUTH_API_KEYS", "key-1, key-2")
	t.Setenv("SWITCHBOARD_LOG_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7070" {
		t.Errorf("listen address = %q, env override lost", cfg.Server.ListenAddress)
	}
	if cfg.Session.TurnTimeout != 90*time.Second {
		t.Errorf("turn timeout = %v, env override lost", cfg.Session.TurnTimeout)
	}
	if cfg.Session.MaxSessions != 7 {
		t.Errorf("max sessions = %d, env override lost", cfg.Session.MaxSessions)
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limit enabled, env override lost")
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "key-1" || cfg.Auth.APIKeys[1] != "key-2" {
		t.Errorf("api keys = %v, want [key-1 key-2]", cfg.Auth.APIKeys)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("log level = %q, env override lost", cfg.Telemetry.Logging.Level)
	}
}

func TestNewDefaultConfigDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Session.HandshakeTimeout != 30*time.Second {
		t.Errorf("handshake timeout default = %v, want 30s", cfg.Session.HandshakeTimeout)
	}
	if cfg.Session.TurnTimeout != 30*time.Second {
		t.Errorf("turn timeout default = %v, want 30s", cfg.Session.TurnTimeout)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("ttl default = %v, want 1h", cfg.Session.TTL)
	}
	if cfg.Session.MaxSessions != 100 {
		t.Errorf("max sessions default = %d, want 100", cfg.Session.MaxSessions)
	}
	if cfg.Session.CleanupInterval != 60*time.Second {
		t.Errorf("cleanup interval default = %v, want 60s", cfg.Session.CleanupInterval)
	}
	if cfg.Server.MaxPayloadBytes != 1048576 {
		t.Errorf("max payload default = %d, want 1048576", cfg.Server.MaxPayloadBytes)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}
