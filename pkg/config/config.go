// Package config provides environment-based configuration for the matchday API.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "MATCHDAY_CONFIG"

// Config holds all configuration for the API server.
type Config struct {
	// Database configuration
	DatabaseDSN string `yaml:"database_url"`
	StoreDriver string `yaml:"store_driver"`

	// Authentication
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`

	// Server configuration
	APIHost string `yaml:"api_host"`
	APIPort int    `yaml:"api_port"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// HealthCheckTimeout bounds the /health component checks.
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	Log         LogConfig         `yaml:"log"`
	Engine      EngineConfig      `yaml:"engine"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	Storage     StorageConfig     `yaml:"storage"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// EngineConfig holds activity rule tuning.
type EngineConfig struct {
	MaxParticipantsPerRequest int           `yaml:"max_participants_per_request"`
	TxMaxAttempts             int           `yaml:"tx_max_attempts"`
	TxRetryBackoff            time.Duration `yaml:"tx_retry_backoff"`
}

// SuggestionsConfig points at an OpenAI-compatible chat completions endpoint.
// When Endpoint is empty suggestions use a fixed template.
type SuggestionsConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StorageConfig holds Supabase Storage settings for profile photos.
type StorageConfig struct {
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`
	Bucket      string `yaml:"bucket"`
}

// Enabled reports whether photo uploads are configured.
func (s StorageConfig) Enabled() bool {
	return s.SupabaseURL != "" && s.SupabaseKey != ""
}

// RateLimitConfig limits join requests and chat messages per user.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

func defaults() *Config {
	return &Config{
		DatabaseDSN:        "postgres://localhost:5432/matchday?sslmode=disable",
		StoreDriver:        StoreDriverPostgres,
		JWTExpiry:          24 * time.Hour,
		APIHost:            "0.0.0.0",
		APIPort:            8080,
		ShutdownTimeout:    30 * time.Second,
		HealthCheckTimeout: 5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			MaxParticipantsPerRequest: 10,
			TxMaxAttempts:             5,
			TxRetryBackoff:            10 * time.Millisecond,
		},
		Suggestions: SuggestionsConfig{
			Model:   "gpt-4o-mini",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Bucket: "avatars",
		},
		RateLimit: RateLimitConfig{
			PerMinute: 30,
			Burst:     10,
		},
	}
}

// Load reads the optional YAML file named by MATCHDAY_CONFIG, then applies
// environment variables on top and validates the result.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	cfg := defaults()
	cfg.JWTSecret = "development-secret-key-min-32-chars"
	cfg.StoreDriver = StoreDriverMemory
	cfg.Log.Format = "text"
	cfg.applyEnv()
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DatabaseDSN = getEnv("DATABASE_URL", c.DatabaseDSN)
	c.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", c.StoreDriver))
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTExpiry = getDurationEnv("JWT_EXPIRY", c.JWTExpiry)
	c.APIHost = getEnv("API_HOST", c.APIHost)
	c.APIPort = getIntEnv("API_PORT", c.APIPort)
	c.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.HealthCheckTimeout = getDurationEnv("HEALTH_CHECK_TIMEOUT", c.HealthCheckTimeout)
	c.TrustProxyHeaders = getBoolEnv("TRUST_PROXY_HEADERS", c.TrustProxyHeaders)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Engine.MaxParticipantsPerRequest = getIntEnv("ENGINE_MAX_PARTICIPANTS_PER_REQUEST", c.Engine.MaxParticipantsPerRequest)
	c.Engine.TxMaxAttempts = getIntEnv("ENGINE_TX_MAX_ATTEMPTS", c.Engine.TxMaxAttempts)
	c.Engine.TxRetryBackoff = getDurationEnv("ENGINE_TX_RETRY_BACKOFF", c.Engine.TxRetryBackoff)

	c.Suggestions.Endpoint = getEnv("SUGGESTIONS_ENDPOINT", c.Suggestions.Endpoint)
	c.Suggestions.APIKey = getEnv("SUGGESTIONS_API_KEY", c.Suggestions.APIKey)
	c.Suggestions.Model = getEnv("SUGGESTIONS_MODEL", c.Suggestions.Model)
	c.Suggestions.Timeout = getDurationEnv("SUGGESTIONS_TIMEOUT", c.Suggestions.Timeout)

	c.Storage.SupabaseURL = getEnv("SUPABASE_URL", c.Storage.SupabaseURL)
	c.Storage.SupabaseKey = getEnv("SUPABASE_KEY", c.Storage.SupabaseKey)
	c.Storage.Bucket = getEnv("SUPABASE_BUCKET", c.Storage.Bucket)

	c.RateLimit.PerMinute = getIntEnv("RATE_LIMIT_PER_MINUTE", c.RateLimit.PerMinute)
	c.RateLimit.Burst = getIntEnv("RATE_LIMIT_BURST", c.RateLimit.Burst)
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}
	if c.Engine.MaxParticipantsPerRequest < 1 {
		return fmt.Errorf("ENGINE_MAX_PARTICIPANTS_PER_REQUEST must be positive")
	}
	if c.Engine.TxMaxAttempts < 1 {
		return fmt.Errorf("ENGINE_TX_MAX_ATTEMPTS must be positive")
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}

// Addr returns the host:port the API listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
