// Package dbtest opens throwaway in-memory SQLite databases for package tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens a private in-memory database and applies each migration in order.
// The database is closed when tb finishes.
//
// The pool is capped at one connection so that every query sees the same
// in-memory database and writers serialize the way they would on a row lock.
func New(tb testing.TB, migrations ...func(*gorm.DB) error) *gorm.DB {
	tb.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	for _, migrate := range migrations {
		if err := migrate(db); err != nil {
			tb.Fatalf("migrate: %v", err)
		}
	}

	return db
}

// Clock is a manually advanced time source.
type Clock struct {
	t time.Time
}

// NewClock starts a clock at a fixed whole-second UTC instant.
func NewClock() *Clock {
	return &Clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current mock time.
func (c *Clock) Now() time.Time {
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}
