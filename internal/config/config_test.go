package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if config.Presence.SweepInterval != 5*time.Second {
		t.Errorf("sweep interval = %v, want 5s", config.Presence.SweepInterval)
	}
	if config.Presence.HeartbeatTimeout != 10*time.Second {
		t.Errorf("heartbeat timeout = %v, want 10s", config.Presence.HeartbeatTimeout)
	}
	if config.Router.RateLimit != 100 {
		t.Errorf("rate limit = %d, want 100", config.Router.RateLimit)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil database", func(c *Config) { c.Database = nil }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero database timeout", func(c *Config) { c.Database.Timeout = 0 }},
		{"nil http", func(c *Config) { c.HTTP = nil }},
		{"negative port", func(c *Config) { c.HTTP.Port = -1 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"zero read timeout", func(c *Config) { c.HTTP.ReadTimeout = 0 }},
		{"zero write timeout", func(c *Config) { c.HTTP.WriteTimeout = 0 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"nil presence", func(c *Config) { c.Presence = nil }},
		{"zero sweep interval", func(c *Config) { c.Presence.SweepInterval = 0 }},
		{"heartbeat shorter than sweep", func(c *Config) { c.Presence.HeartbeatTimeout = time.Second }},
		{"zero rate limit", func(c *Config) { c.Router.RateLimit = 0 }},
		{"nil auth", func(c *Config) { c.Auth = nil }},
		{"empty default password", func(c *Config) { c.Auth.DefaultPassword = "" }},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"nil log", func(c *Config) { c.Log = nil }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("CLASSHUB_HTTP_PORT", "9090")
	t.Setenv("CLASSHUB_HTTP_HOST", "127.0.0.1")
	t.Setenv("CLASSHUB_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("CLASSHUB_PRESENCE_HEARTBEAT_TIMEOUT", "20s")
	t.Setenv("CLASSHUB_ROUTER_RATE_LIMIT", "50")
	t.Setenv("CLASSHUB_AUTH_TOKEN_TTL", "2h")
	t.Setenv("CLASSHUB_LOG_LEVEL", "debug")
	t.Setenv("CLASSHUB_LOG_NO_COLOR", "true")

	config := LoadFromEnv()

	if config.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", config.HTTP.Port)
	}
	if config.HTTP.Host != "127.0.0.1" {
		t.Errorf("host = %q", config.HTTP.Host)
	}
	if config.Database.Path != "/tmp/env.db" {
		t.Errorf("database path = %q", config.Database.Path)
	}
	if config.Presence.HeartbeatTimeout != 20*time.Second {
		t.Errorf("heartbeat timeout = %v", config.Presence.HeartbeatTimeout)
	}
	if config.Router.RateLimit != 50 {
		t.Errorf("rate limit = %d", config.Router.RateLimit)
	}
	if config.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("token ttl = %v", config.Auth.TokenTTL)
	}
	if config.Log.Level != "debug" || !config.Log.NoColor {
		t.Errorf("log = %+v", config.Log)
	}
}

func TestConfig_LoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("CLASSHUB_HTTP_PORT", "not-a-number")
	t.Setenv("CLASSHUB_PRESENCE_SWEEP_INTERVAL", "soon")
	t.Setenv("CLASSHUB_LOG_NO_COLOR", "maybe")

	config := LoadFromEnv()
	defaults := DefaultConfig()

	if config.HTTP.Port != defaults.HTTP.Port {
		t.Errorf("port = %d, want default", config.HTTP.Port)
	}
	if config.Presence.SweepInterval != defaults.Presence.SweepInterval {
		t.Errorf("sweep interval = %v, want default", config.Presence.SweepInterval)
	}
	if config.Log.NoColor {
		t.Error("no_color should keep its default")
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"database": {"path": "/tmp/file.db", "timeout": "10s"},
		"http": {"port": 8081, "read_timeout": "15s"},
		"presence": {"sweep_interval": "2s", "heartbeat_timeout": "6s"},
		"router": {"rate_limit": 30},
		"auth": {"default_teacher": "teacher", "token_ttl": "1h"},
		"log": {"level": "warn"}
	}`)

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Database.Path != "/tmp/file.db" || config.Database.Timeout != 10*time.Second {
		t.Errorf("database = %+v", config.Database)
	}
	if config.HTTP.Port != 8081 || config.HTTP.ReadTimeout != 15*time.Second {
		t.Errorf("http = %+v", config.HTTP)
	}
	if config.HTTP.WriteTimeout != 30*time.Second {
		t.Errorf("unset write timeout should keep default, got %v", config.HTTP.WriteTimeout)
	}
	if config.Presence.SweepInterval != 2*time.Second || config.Presence.HeartbeatTimeout != 6*time.Second {
		t.Errorf("presence = %+v", config.Presence)
	}
	if config.Router.RateLimit != 30 {
		t.Errorf("rate limit = %d", config.Router.RateLimit)
	}
	if config.Auth.DefaultTeacher != "teacher" || config.Auth.DefaultPassword != "admin123" {
		t.Errorf("auth = %+v", config.Auth)
	}
	if config.Log.Level != "warn" {
		t.Errorf("log level = %q", config.Log.Level)
	}
}

func TestConfig_LoadFromFileErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.json") }},
		{"invalid JSON", func(t *testing.T) string { return writeFile(t, "bad.json", `{"http": {`) }},
		{"invalid values", func(t *testing.T) string { return writeFile(t, "invalid.json", `{"log": {"level": "loud"}}`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromFile(tt.path(t)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConfig_Precedence(t *testing.T) {
	dotEnv := writeFile(t, ".env", "CLASSHUB_HTTP_PORT=7000\nCLASSHUB_HTTP_HOST=10.0.0.1\nCLASSHUB_ROUTER_RATE_LIMIT=40\n")
	file := writeFile(t, "config.json", `{"router": {"rate_limit": 20}}`)

	// The real environment beats .env
	t.Setenv("CLASSHUB_HTTP_HOST", "192.168.1.10")
	t.Cleanup(func() {
		os.Unsetenv("CLASSHUB_HTTP_PORT")
		os.Unsetenv("CLASSHUB_ROUTER_RATE_LIMIT")
	})

	config, err := LoadConfigWithPrecedence(dotEnv, file)
	if err != nil {
		t.Fatalf("LoadConfigWithPrecedence failed: %v", err)
	}

	if config.HTTP.Port != 7000 {
		t.Errorf("port = %d, want 7000 from .env", config.HTTP.Port)
	}
	if config.HTTP.Host != "192.168.1.10" {
		t.Errorf("host = %q, want environment value", config.HTTP.Host)
	}
	if config.Router.RateLimit != 20 {
		t.Errorf("rate limit = %d, want 20 from file", config.Router.RateLimit)
	}
}

func TestConfig_PrecedenceWithoutFiles(t *testing.T) {
	config, err := LoadConfigWithPrecedence(filepath.Join(t.TempDir(), ".env"), "")
	if err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
	if config.HTTP.Port != DefaultConfig().HTTP.Port {
		t.Errorf("port = %d, want default", config.HTTP.Port)
	}

	if _, err := LoadConfigWithPrecedence("", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("a named config file that cannot be read should fail")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
