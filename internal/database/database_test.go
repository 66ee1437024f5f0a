package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
)

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Driver = DriverSQLite
	cfg.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.LogLevel = "silent"
	return cfg
}

func TestOpenMigratesSQLite(t *testing.T) {
	db, err := Open(context.Background(), sqliteConfig(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })

	if !db.Migrator().HasTable(&session.Session{}) {
		t.Fatal("user_sessions not created")
	}
	if !db.Migrator().HasTable(&rate.LoginAttempt{}) {
		t.Fatal("login_attempts not created")
	}
	if !db.Migrator().HasIndex(&session.Session{}, "ux_user_sessions_one_active") {
		t.Fatal("single-active index not created")
	}

	// migrating twice is harmless
	if err := Migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestOpenCreatesSQLiteDirectory(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DSN = filepath.Join(t.TempDir(), "nested", "gosession.db")
	db, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Close(db); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "default with dsn", mutate: func(c *Config) { c.DSN = "host=localhost" }, ok: true},
		{name: "missing dsn", mutate: func(c *Config) {}, ok: false},
		{name: "bad driver", mutate: func(c *Config) { c.DSN = "x"; c.Driver = "mysql" }, ok: false},
		{name: "bad log level", mutate: func(c *Config) { c.DSN = "x"; c.LogLevel = "loud" }, ok: false},
		{name: "negative pool", mutate: func(c *Config) { c.DSN = "x"; c.MaxOpenConns = -1 }, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestOpenRejectsUnsupportedDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Driver = "oracle"
	if _, err := Open(context.Background(), cfg); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestSQLitePath(t *testing.T) {
	if got := sqlitePath("file:abc?mode=memory"); got != "" {
		t.Fatalf("memory dsn gave %q", got)
	}
	if got := sqlitePath("file:/var/lib/app.db?_busy_timeout=5000"); got != "/var/lib/app.db" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestCloseNil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("close nil: %v", err)
	}
}
