package goSession

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// GOSESSION_SESSION_IDLE_TTL=20m or GOSESSION_DATABASE_DSN=postgres://...
const EnvPrefix = "GOSESSION"

// LoadConfig starts from [DefaultConfig], merges the YAML file at path (when
// path is non-empty) and then environment overrides. Durations accept Go
// syntax ("15m", "24h"). The JWT keys are read from jwt.private_key and
// jwt.public_key as strings.
//
// LoadConfig does not call Validate.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := v.GetString("jwt.private_key"); key != "" {
		cfg.JWT.PrivateKey = []byte(key)
	}
	if key := v.GetString("jwt.public_key"); key != "" {
		cfg.JWT.PublicKey = []byte(key)
	}

	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys the
// file does not mention.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("jwt.access_ttl", d.JWT.AccessTTL)
	v.SetDefault("jwt.signing_method", d.JWT.SigningMethod)
	v.SetDefault("jwt.private_key", "")
	v.SetDefault("jwt.public_key", "")
	v.SetDefault("jwt.issuer", d.JWT.Issuer)
	v.SetDefault("jwt.audience", d.JWT.Audience)
	v.SetDefault("jwt.leeway", d.JWT.Leeway)
	v.SetDefault("jwt.key_id", d.JWT.KeyID)

	v.SetDefault("session.idle_ttl", d.Session.IdleTTL)

	v.SetDefault("lockout.max_attempts", d.Lockout.MaxAttempts)
	v.SetDefault("lockout.window", d.Lockout.Window)

	v.SetDefault("janitor.enabled", d.Janitor.Enabled)
	v.SetDefault("janitor.interval", d.Janitor.Interval)
	v.SetDefault("janitor.retry_interval", d.Janitor.RetryInterval)
	v.SetDefault("janitor.attempt_retention", d.Janitor.AttemptRetention)
	v.SetDefault("janitor.lease_key", d.Janitor.LeaseKey)

	v.SetDefault("password.memory", d.Password.Memory)
	v.SetDefault("password.time", d.Password.Time)
	v.SetDefault("password.parallelism", d.Password.Parallelism)
	v.SetDefault("password.salt_length", d.Password.SaltLength)
	v.SetDefault("password.key_length", d.Password.KeyLength)
	v.SetDefault("password.max_password_bytes", d.Password.MaxPasswordBytes)
	v.SetDefault("password.bcrypt_cost", d.Password.BcryptCost)
	v.SetDefault("password.upgrade_on_login", d.Password.UpgradeOnLogin)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.log_level", d.Database.LogLevel)
	v.SetDefault("database.ping_timeout", d.Database.PingTimeout)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", d.Audit.DropIfFull)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.enable_latency_histograms", d.Metrics.EnableLatencyHistograms)
	v.SetDefault("metrics.otel_log_interval", d.Metrics.OTelLogInterval)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)
	v.SetDefault("http.trusted_proxies", d.HTTP.TrustedProxies)
}
