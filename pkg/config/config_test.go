package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("API_PORT", "9000")
	t.Setenv("ENGINE_MAX_PARTICIPANTS_PER_REQUEST", "6")
	t.Setenv("ENGINE_TX_RETRY_BACKOFF", "25ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != StoreDriverMemory {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.Engine.MaxParticipantsPerRequest != 6 {
		t.Errorf("MaxParticipantsPerRequest = %d", cfg.Engine.MaxParticipantsPerRequest)
	}
	if cfg.Engine.TxRetryBackoff != 25*time.Millisecond {
		t.Errorf("TxRetryBackoff = %v", cfg.Engine.TxRetryBackoff)
	}
	if cfg.Engine.TxMaxAttempts != 5 {
		t.Errorf("TxMaxAttempts default = %d", cfg.Engine.TxMaxAttempts)
	}
	if cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should default to false")
	}
}

func TestProxyAndHealthSettings(t *testing.T) {
	t.Setenv("TRUST_PROXY_HEADERS", "true")
	t.Setenv("HEALTH_CHECK_TIMEOUT", "750ms")

	cfg := LoadWithDefaults()
	if !cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders not read from env")
	}
	if cfg.HealthCheckTimeout != 750*time.Millisecond {
		t.Errorf("HealthCheckTimeout = %v", cfg.HealthCheckTimeout)
	}
	if cfg.StoreDriver != StoreDriverMemory || len(cfg.JWTSecret) < 32 {
		t.Errorf("development defaults not applied: %+v", cfg)
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matchday.yaml")
	content := `
jwt_secret: ` + testSecret + `
store_driver: memory
api_port: 7000
engine:
  max_participants_per_request: 4
suggestions:
  endpoint: http://localhost:11434/v1/chat/completions
  timeout: 3s
storage:
  supabase_url: https://example.supabase.co
  supabase_key: anon
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("API_PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != 7100 {
		t.Errorf("env should override file, APIPort = %d", cfg.APIPort)
	}
	if cfg.Engine.MaxParticipantsPerRequest != 4 {
		t.Errorf("MaxParticipantsPerRequest = %d", cfg.Engine.MaxParticipantsPerRequest)
	}
	if cfg.Suggestions.Timeout != 3*time.Second {
		t.Errorf("Suggestions.Timeout = %v", cfg.Suggestions.Timeout)
	}
	if !cfg.Storage.Enabled() || cfg.Storage.Bucket != "avatars" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, true},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = StoreDriverPostgres; c.DatabaseDSN = "" }, true},
		{"zero cap", func(c *Config) { c.Engine.MaxParticipantsPerRequest = 0 }, true},
		{"zero attempts", func(c *Config) { c.Engine.TxMaxAttempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.JWTSecret = testSecret
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
