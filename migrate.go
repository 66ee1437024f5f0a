package goSession

import (
	"github.com/MrEthical07/goSession/internal/database"
	"gorm.io/gorm"
)

// Migrate creates or updates the tables the engine owns: user_sessions with
// its one-active-session index, and login_attempts. It is idempotent. The
// host's user table is not touched.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return ErrDatabaseRequired
	}
	return database.Migrate(db)
}
