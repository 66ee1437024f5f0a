// Package database opens the relational store behind sessions and login
// attempts and brings its schema up to date.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrUnsupportedDriver is returned for a driver other than postgres or sqlite.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Config describes how to reach the database.
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// LogLevel is one of silent, error, warn, info.
	LogLevel    string        `mapstructure:"log_level"`
	PingTimeout time.Duration `mapstructure:"ping_timeout"`
	// AutoMigrate creates or updates tables and indexes on Open.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DefaultConfig returns pool settings suitable for a single service instance.
// DSN must still be set.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverPostgres,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "warn",
		PingTimeout:     5 * time.Second,
		AutoMigrate:     true,
	}
}

// Validate checks the config without touching the network.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("database dsn must be set")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("database pool sizes must be >= 0")
	}
	if c.ConnMaxLifetime < 0 {
		return errors.New("database conn_max_lifetime must be >= 0")
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Open connects, pings and, when enabled, migrates. Any failure is returned
// so that callers can refuse to start.
func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := parseLogLevel(cfg.LogLevel)

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.Driver == DriverSQLite {
		// one writer at a time; WAL lets readers proceed
		sqlDB.SetMaxOpenConns(1)
		_ = db.Exec("PRAGMA journal_mode = WAL;").Error
		_ = db.Exec("PRAGMA synchronous = NORMAL;").Error
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	return db, nil
}

// Migrate creates or updates every table the subsystem owns.
func Migrate(db *gorm.DB) error {
	if err := session.Migrate(db); err != nil {
		return err
	}
	if err := rate.Migrate(db); err != nil {
		return err
	}
	return nil
}

// Close releases the connection pool. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		if path := sqlitePath(cfg.DSN); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// sqlitePath returns the on-disk path of a sqlite DSN, or "" for in-memory
// databases.
func sqlitePath(dsn string) string {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func parseLogLevel(s string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return logger.Warn, nil
	case "silent":
		return logger.Silent, nil
	case "error":
		return logger.Error, nil
	case "info":
		return logger.Info, nil
	default:
		return 0, fmt.Errorf("unknown database log_level %q", s)
	}
}
