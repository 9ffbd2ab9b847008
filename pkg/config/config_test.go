package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.WebSocket.MessagesPerSecond = 0
	cfg.RateLimiting.WebSocket.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"pong timeout not above ping interval", func(c *Config) { c.Signal.PongTimeout = c.Signal.PingInterval }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"zero catalog cache ttl", func(c *Config) { c.Catalog.CacheTTL = 0 }},
		{"redis enabled without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}},
		{"tracing sample rate out of range", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 1.5
		}},
		{"ws messages per second zero", func(c *Config) { c.RateLimiting.WebSocket.MessagesPerSecond = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should fall back to defaults, got: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want :8080", cfg.Server.Address)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
server:
  address: ":9000"
  read_timeout: 10s
  write_timeout: 10s
  shutdown_timeout: 5s
signal:
  ping_interval: 15s
  pong_timeout: 45s
  write_timeout: 5s
logging:
  level: debug
auth:
  jwt_secret: test-secret
catalog:
  cache_ttl: 1m
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("Server.Address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Signal.PingInterval != 15*time.Second {
		t.Errorf("Signal.PingInterval = %v, want 15s", cfg.Signal.PingInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Catalog.CacheTTL != time.Minute {
		t.Errorf("Catalog.CacheTTL = %v, want 1m", cfg.Catalog.CacheTTL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIVECART_SERVER_ADDRESS", ":7777")
	t.Setenv("LIVECART_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Address != ":7777" {
		t.Errorf("Server.Address = %q, want :7777", cfg.Server.Address)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}
