package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// UserRecord is the provider-facing view of a user account.
//
// Active=false means the account has not verified its e-mail address yet:
// such users can prove their password but are never issued a session.
type UserRecord struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Admin        bool
}

// UserProvider looks users up in the host application's user table. Both
// methods must return (or wrap) [ErrUserNotFound] when nothing matches; any
// other error is treated as a backend failure.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, username string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
}

// PasswordHashUpdater is optionally implemented by a [UserProvider]. When
// present, a successful login with a hash that needs upgrading (e.g. a legacy
// bcrypt hash) stores a fresh argon2id hash.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// Identity is the result of a successful [Engine.Authenticate].
type Identity struct {
	UserID    string
	Username  string
	Email     string
	Admin     bool
	SessionID string
	// ExpiresAt is the session's slid idle deadline.
	ExpiresAt time.Time
}

// SessionInfo describes one active session. The opaque session token is never
// exposed.
type SessionInfo struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	IP           string
	UserAgent    string
}

func sessionInfoFrom(s *session.Session) SessionInfo {
	return SessionInfo{
		ID:           s.ID,
		UserID:       s.UserID,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.ExpiresAt,
		IP:           s.IP,
		UserAgent:    s.UserAgent,
	}
}

// JanitorResult reports one background sweep.
type JanitorResult struct {
	ExpiredSessions int64
	PurgedAttempts  int64
	Skipped         bool
	Duration        time.Duration
}
