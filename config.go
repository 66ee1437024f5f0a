package goSession

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/internal/database"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/janitor"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"golang.org/x/crypto/bcrypt"
)

// Config holds every tunable of the engine and of the server binary.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	JWT      JWTConfig      `mapstructure:"jwt"`
	Session  SessionConfig  `mapstructure:"session"`
	Lockout  LockoutConfig  `mapstructure:"lockout"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
	Password PasswordConfig `mapstructure:"password"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access token signing.
type JWTConfig struct {
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	SigningMethod string        `mapstructure:"signing_method"` // "hs256" (default) or "ed25519"
	// PrivateKey is the HS256 secret or the Ed25519 private key. Loaded from
	// jwt.private_key / GOSESSION_JWT_PRIVATE_KEY.
	PrivateKey []byte        `mapstructure:"-"`
	PublicKey  []byte        `mapstructure:"-"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	Leeway     time.Duration `mapstructure:"leeway"`
	KeyID      string        `mapstructure:"key_id"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls server-side sessions.
type SessionConfig struct {
	// IdleTTL is the sliding idle lifetime; every authenticated request
	// pushes expiry to now+IdleTTL.
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

// LockoutConfig controls failed-login lockout per (username, IP) pair.
type LockoutConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
}

// JanitorConfig controls the background expiry sweep.
type JanitorConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Interval         time.Duration `mapstructure:"interval"`
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
	AttemptRetention time.Duration `mapstructure:"attempt_retention"`
	// LeaseKey names the Redis key that elects one sweeper per interval when
	// a Redis client is configured.
	LeaseKey string `mapstructure:"lease_key"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls hashing of new passwords and verification of
// stored ones.
type PasswordConfig struct {
	Memory           uint32 `mapstructure:"memory"`
	Time             uint32 `mapstructure:"time"`
	Parallelism      uint8  `mapstructure:"parallelism"`
	SaltLength       uint32 `mapstructure:"salt_length"`
	KeyLength        uint32 `mapstructure:"key_length"`
	MaxPasswordBytes int    `mapstructure:"max_password_bytes"`
	// BcryptCost applies to bcrypt hashes created through password.Bcrypt;
	// zero selects bcrypt.DefaultCost.
	BcryptCost int `mapstructure:"bcrypt_cost"`
	// UpgradeOnLogin rehashes legacy hashes with argon2id after a successful
	// login when the UserProvider implements PasswordHashUpdater.
	UpgradeOnLogin bool `mapstructure:"upgrade_on_login"`
}

// Argon2 returns the hasher parameters for new hashes.
func (p PasswordConfig) Argon2() password.Config {
	return password.Config{
		Memory:           p.Memory,
		Time:             p.Time,
		Parallelism:      p.Parallelism,
		SaltLength:       p.SaltLength,
		KeyLength:        p.KeyLength,
		MaxPasswordBytes: p.MaxPasswordBytes,
	}
}

/*
====================================
STORAGE CONFIG
====================================
*/

// DatabaseConfig describes the relational store. See [database.Config].
type DatabaseConfig = database.Config

// RedisConfig configures the optional Redis client used for the janitor
// lease. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
	// OTelLogInterval, when positive, makes cmd/gosession-server feed the
	// counters through an OpenTelemetry meter provider whose periodic reader
	// writes them to the log. Zero disables it.
	OTelLogInterval time.Duration `mapstructure:"otel_log_interval"`
}

// HTTPConfig is consumed by cmd/gosession-server only.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the documented defaults: 60-minute tokens, 15-minute
// sliding sessions, lockout after 5 failures within 15 minutes, and a sweep
// every 5 minutes. JWT.PrivateKey and Database.DSN must still be set.
func DefaultConfig() Config {
	argon := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:     jwt.DefaultAccessTTL,
			SigningMethod: string(jwt.MethodHS256),
		},
		Session: SessionConfig{
			IdleTTL: session.DefaultTTL,
		},
		Lockout: LockoutConfig{
			MaxAttempts: rate.DefaultMaxLoginAttempts,
			Window:      rate.DefaultLockoutDuration,
		},
		Janitor: JanitorConfig{
			Enabled:          true,
			Interval:         janitor.DefaultInterval,
			RetryInterval:    janitor.DefaultRetryInterval,
			AttemptRetention: janitor.DefaultAttemptRetention,
			LeaseKey:         "gosession:janitor:lease",
		},
		Password: PasswordConfig{
			Memory:           argon.Memory,
			Time:             argon.Time,
			Parallelism:      argon.Parallelism,
			SaltLength:       argon.SaltLength,
			KeyLength:        argon.KeyLength,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			BcryptCost:       bcrypt.DefaultCost,
			UpgradeOnLogin:   true,
		},
		Database: database.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		HTTP: HTTPConfig{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.HTTP.AllowedOrigins = append([]string(nil), cfg.HTTP.AllowedOrigins...)
	out.HTTP.TrustedProxies = append([]string(nil), cfg.HTTP.TrustedProxies...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the engine settings. The Database section is validated by
// database.Open and is not checked here, so engines built over an injected
// *gorm.DB need no DSN.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodHS256:
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 PrivateKey must be at least 32 bytes")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}

	// Session
	if c.Session.IdleTTL <= 0 {
		return errors.New("Session IdleTTL must be > 0")
	}

	// Lockout
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}
	if c.Lockout.Window <= 0 {
		return errors.New("Lockout Window must be > 0")
	}

	// Janitor
	if c.Janitor.Enabled {
		if c.Janitor.Interval <= 0 {
			return errors.New("Janitor Interval must be > 0")
		}
		if c.Janitor.RetryInterval <= 0 || c.Janitor.RetryInterval > c.Janitor.Interval {
			return errors.New("Janitor RetryInterval must be > 0 and <= Interval")
		}
		if c.Janitor.AttemptRetention < c.Lockout.Window {
			return errors.New("Janitor AttemptRetention must cover the lockout window")
		}
	}

	// Password
	if c.Password.BcryptCost != 0 &&
		(c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost) {
		return errors.New("Password BcryptCost out of range")
	}
	if _, err := password.NewArgon2(c.Password.Argon2()); err != nil {
		return err
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.OTelLogInterval < 0 {
		return errors.New("Metrics OTelLogInterval must be >= 0")
	}
	if c.Metrics.OTelLogInterval > 0 && !c.Metrics.Enabled {
		return errors.New("Metrics OTelLogInterval requires Metrics Enabled")
	}

	return nil
}
