package goSession

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults with key", mutate: func(c *Config) {}, wantValid: true},
		{name: "hs256 without key", mutate: func(c *Config) { c.JWT.PrivateKey = nil }, wantValid: false},
		{name: "hs256 short key", mutate: func(c *Config) { c.JWT.PrivateKey = []byte("short") }, wantValid: false},
		{name: "ed25519 without public key", mutate: func(c *Config) { c.JWT.SigningMethod = "ed25519" }, wantValid: false},
		{name: "unknown signer", mutate: func(c *Config) { c.JWT.SigningMethod = "rs256" }, wantValid: false},
		{name: "zero access ttl", mutate: func(c *Config) { c.JWT.AccessTTL = 0 }, wantValid: false},
		{name: "leeway valid", mutate: func(c *Config) { c.JWT.Leeway = 45 * time.Second }, wantValid: true},
		{name: "leeway too large", mutate: func(c *Config) { c.JWT.Leeway = 3 * time.Minute }, wantValid: false},
		{name: "blank audience", mutate: func(c *Config) { c.JWT.Audience = "   " }, wantValid: false},
		{name: "zero idle ttl", mutate: func(c *Config) { c.Session.IdleTTL = 0 }, wantValid: false},
		{name: "zero max attempts", mutate: func(c *Config) { c.Lockout.MaxAttempts = 0 }, wantValid: false},
		{name: "zero lockout window", mutate: func(c *Config) { c.Lockout.Window = 0 }, wantValid: false},
		{name: "retry above interval", mutate: func(c *Config) { c.Janitor.RetryInterval = time.Hour }, wantValid: false},
		{name: "retention below window", mutate: func(c *Config) { c.Janitor.AttemptRetention = time.Minute }, wantValid: false},
		{name: "janitor disabled skips its checks", mutate: func(c *Config) {
			c.Janitor.Enabled = false
			c.Janitor.Interval = 0
		}, wantValid: true},
		{name: "bad bcrypt cost", mutate: func(c *Config) { c.Password.BcryptCost = 99 }, wantValid: false},
		{name: "bad argon2 params", mutate: func(c *Config) { c.Password.KeyLength = 0 }, wantValid: false},
		{name: "audit without buffer", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, wantValid: false},
		{name: "negative otel interval", mutate: func(c *Config) { c.Metrics.OTelLogInterval = -time.Second }, wantValid: false},
		{name: "otel interval without metrics", mutate: func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.OTelLogInterval = time.Minute
		}, wantValid: false},
		{name: "otel interval", mutate: func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.OTelLogInterval = time.Minute
		}, wantValid: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.JWT.AccessTTL != 60*time.Minute {
		t.Errorf("access ttl %v", cfg.JWT.AccessTTL)
	}
	if cfg.Session.IdleTTL != 15*time.Minute {
		t.Errorf("idle ttl %v", cfg.Session.IdleTTL)
	}
	if cfg.Lockout.MaxAttempts != 5 || cfg.Lockout.Window != 15*time.Minute {
		t.Errorf("lockout %+v", cfg.Lockout)
	}
	if cfg.Janitor.Interval != 5*time.Minute || cfg.Janitor.RetryInterval != time.Minute || cfg.Janitor.AttemptRetention != 24*time.Hour {
		t.Errorf("janitor %+v", cfg.Janitor)
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := validTestConfig()
	out := cloneConfig(cfg)
	out.JWT.PrivateKey[0] = 'X'
	if cfg.JWT.PrivateKey[0] == 'X' {
		t.Fatal("clone shares key bytes")
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gosession.yaml")
	yaml := `
jwt:
  private_key: "file-secret-file-secret-file-secret"
  issuer: "gosession"
session:
  idle_ttl: 20m
lockout:
  max_attempts: 7
database:
  driver: sqlite
  dsn: "file:test.db"
http:
  allowed_origins: ["http://localhost:3000"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOSESSION_LOCKOUT_WINDOW", "30m")
	t.Setenv("GOSESSION_JANITOR_ENABLED", "false")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(cfg.JWT.PrivateKey) != "file-secret-file-secret-file-secret" || cfg.JWT.Issuer != "gosession" {
		t.Errorf("jwt %+v", cfg.JWT)
	}
	if cfg.Session.IdleTTL != 20*time.Minute {
		t.Errorf("idle ttl %v", cfg.Session.IdleTTL)
	}
	if cfg.Lockout.MaxAttempts != 7 || cfg.Lockout.Window != 30*time.Minute {
		t.Errorf("lockout %+v", cfg.Lockout)
	}
	if cfg.Janitor.Enabled {
		t.Error("env override of janitor.enabled ignored")
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "file:test.db" {
		t.Errorf("database %+v", cfg.Database)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("origins %v", cfg.HTTP.AllowedOrigins)
	}
	// untouched keys keep their defaults
	if cfg.JWT.AccessTTL != 60*time.Minute || cfg.Janitor.Interval != 5*time.Minute {
		t.Errorf("defaults lost: %v %v", cfg.JWT.AccessTTL, cfg.Janitor.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("GOSESSION_JWT_PRIVATE_KEY", "env-secret-env-secret-env-secret-00")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(cfg.JWT.PrivateKey) != "env-secret-env-secret-env-secret-00" {
		t.Fatalf("private key from env not applied: %q", cfg.JWT.PrivateKey)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
