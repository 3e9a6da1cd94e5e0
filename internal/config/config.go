package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "CLASSHUB_"

// Config is the complete server configuration
type Config struct {
	Database *DatabaseConfig `json:"database"`
	HTTP     *HTTPConfig     `json:"http"`
	Presence *PresenceConfig `json:"presence"`
	Router   *RouterConfig   `json:"router"`
	Auth     *AuthConfig     `json:"auth"`
	Log      *LogConfig      `json:"log"`
}

type DatabaseConfig struct {
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

type HTTPConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	Host         string        `json:"host"`
}

// PresenceConfig controls heartbeat staleness detection
type PresenceConfig struct {
	SweepInterval    time.Duration `json:"sweep_interval"`
	HeartbeatTimeout time.Duration `json:"heartbeat_timeout"`
}

// RouterConfig limits inbound events per connection per minute. Progress
// updates and heartbeats are not counted.
type RouterConfig struct {
	RateLimit int `json:"rate_limit"`
}

// AuthConfig seeds the first teacher account and sets token lifetime
type AuthConfig struct {
	DefaultTeacher  string        `json:"default_teacher"`
	DefaultPassword string        `json:"default_password"`
	TokenTTL        time.Duration `json:"token_ttl"`
}

type LogConfig struct {
	Level   string `json:"level"`
	NoColor bool   `json:"no_color"`
}

// DefaultConfig returns settings suited to a single classroom on a LAN
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:    "./data/classhub.db",
			Timeout: 30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Host:         "0.0.0.0",
		},
		Presence: &PresenceConfig{
			SweepInterval:    5 * time.Second,
			HeartbeatTimeout: 10 * time.Second,
		},
		Router: &RouterConfig{
			RateLimit: 100,
		},
		Auth: &AuthConfig{
			DefaultTeacher:  "admin",
			DefaultPassword: "admin123",
			TokenTTL:        24 * time.Hour,
		},
		Log: &LogConfig{
			Level: "info",
		},
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Database == nil {
		return errors.New("database configuration is required")
	}
	if c.Database.Path == "" {
		return errors.New("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return errors.New("database timeout must be positive")
	}

	if c.HTTP == nil {
		return errors.New("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return errors.New("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return errors.New("HTTP write timeout must be positive")
	}
	if c.HTTP.Host == "" {
		return errors.New("HTTP host cannot be empty")
	}

	if c.Presence == nil {
		return errors.New("presence configuration is required")
	}
	if c.Presence.SweepInterval <= 0 {
		return errors.New("presence sweep interval must be positive")
	}
	if c.Presence.HeartbeatTimeout < c.Presence.SweepInterval {
		return errors.New("heartbeat timeout must not be shorter than the sweep interval")
	}

	if c.Router == nil {
		return errors.New("router configuration is required")
	}
	if c.Router.RateLimit <= 0 {
		return errors.New("router rate limit must be positive")
	}

	if c.Auth == nil {
		return errors.New("auth configuration is required")
	}
	if c.Auth.DefaultTeacher == "" || c.Auth.DefaultPassword == "" {
		return errors.New("default teacher credentials cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth token TTL must be positive")
	}

	if c.Log == nil {
		return errors.New("log configuration is required")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment.
// Variables already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays CLASSHUB_* variables on the defaults. Unparseable
// values are ignored.
func LoadFromEnv() *Config {
	config := DefaultConfig()
	applyEnv(config)
	return config
}

func applyEnv(config *Config) {
	envString("DATABASE_PATH", &config.Database.Path)
	envDuration("DATABASE_TIMEOUT", &config.Database.Timeout)

	envInt("HTTP_PORT", &config.HTTP.Port)
	envString("HTTP_HOST", &config.HTTP.Host)
	envDuration("HTTP_READ_TIMEOUT", &config.HTTP.ReadTimeout)
	envDuration("HTTP_WRITE_TIMEOUT", &config.HTTP.WriteTimeout)

	envDuration("PRESENCE_SWEEP_INTERVAL", &config.Presence.SweepInterval)
	envDuration("PRESENCE_HEARTBEAT_TIMEOUT", &config.Presence.HeartbeatTimeout)

	envInt("ROUTER_RATE_LIMIT", &config.Router.RateLimit)

	envString("AUTH_DEFAULT_TEACHER", &config.Auth.DefaultTeacher)
	envString("AUTH_DEFAULT_PASSWORD", &config.Auth.DefaultPassword)
	envDuration("AUTH_TOKEN_TTL", &config.Auth.TokenTTL)

	envString("LOG_LEVEL", &config.Log.Level)
	envBool("LOG_NO_COLOR", &config.Log.NoColor)
}

func envString(name string, target *string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*target = v
	}
}

func envInt(name string, target *int) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func envDuration(name string, target *time.Duration) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

func envBool(name string, target *bool) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// ConfigFile is the JSON file layout. Durations are strings such as "30s".
type ConfigFile struct {
	Database *DatabaseConfigFile `json:"database"`
	HTTP     *HTTPConfigFile     `json:"http"`
	Presence *PresenceConfigFile `json:"presence"`
	Router   *RouterConfig       `json:"router"`
	Auth     *AuthConfigFile     `json:"auth"`
	Log      *LogConfig          `json:"log"`
}

type DatabaseConfigFile struct {
	Path    string `json:"path"`
	Timeout string `json:"timeout"`
}

type HTTPConfigFile struct {
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
	Host         string `json:"host"`
}

type PresenceConfigFile struct {
	SweepInterval    string `json:"sweep_interval"`
	HeartbeatTimeout string `json:"heartbeat_timeout"`
}

type AuthConfigFile struct {
	DefaultTeacher  string `json:"default_teacher"`
	DefaultPassword string `json:"default_password"`
	TokenTTL        string `json:"token_ttl"`
}

// LoadFromFile overlays a JSON file on the defaults and validates the result
func LoadFromFile(filepath string) (*Config, error) {
	config := DefaultConfig()
	if err := applyFile(config, filepath); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filepath, err)
	}
	return config, nil
}

func applyFile(config *Config, filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var file ConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filepath, err)
	}

	if f := file.Database; f != nil {
		setString(&config.Database.Path, f.Path)
		setDuration(&config.Database.Timeout, f.Timeout)
	}
	if f := file.HTTP; f != nil {
		if f.Port > 0 {
			config.HTTP.Port = f.Port
		}
		setString(&config.HTTP.Host, f.Host)
		setDuration(&config.HTTP.ReadTimeout, f.ReadTimeout)
		setDuration(&config.HTTP.WriteTimeout, f.WriteTimeout)
	}
	if f := file.Presence; f != nil {
		setDuration(&config.Presence.SweepInterval, f.SweepInterval)
		setDuration(&config.Presence.HeartbeatTimeout, f.HeartbeatTimeout)
	}
	if f := file.Router; f != nil && f.RateLimit > 0 {
		config.Router.RateLimit = f.RateLimit
	}
	if f := file.Auth; f != nil {
		setString(&config.Auth.DefaultTeacher, f.DefaultTeacher)
		setString(&config.Auth.DefaultPassword, f.DefaultPassword)
		setDuration(&config.Auth.TokenTTL, f.TokenTTL)
	}
	if f := file.Log; f != nil {
		setString(&config.Log.Level, f.Level)
		config.Log.NoColor = config.Log.NoColor || f.NoColor
	}
	return nil
}

func setString(target *string, v string) {
	if v != "" {
		*target = v
	}
}

func setDuration(target *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*target = d
	}
}

// LoadConfigWithPrecedence builds the configuration from, lowest first:
// defaults, the .env file at dotEnvPath, the environment, then the JSON file
// at filepath. Empty paths are skipped.
func LoadConfigWithPrecedence(dotEnvPath, filepath string) (*Config, error) {
	if dotEnvPath != "" {
		if err := LoadDotEnv(dotEnvPath); err != nil {
			return nil, err
		}
	}

	config := LoadFromEnv()
	if filepath != "" {
		if err := applyFile(config, filepath); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ParseLevel accepts debug, info, warn and error in any case
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
