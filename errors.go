package goSession

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong
	// password. Both cases return the same error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked matches every *LockedError.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrAccountUnverified is returned when the password is correct but the
	// account has not confirmed its e-mail address.
	ErrAccountUnverified = errors.New("account email not verified")
	// ErrInvalidToken is returned for a bearer token that is malformed, forged,
	// expired or names a user that no longer exists.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionExpired is returned when the token is valid but its session is
	// no longer active: idle timeout, logout, supersession or revocation.
	ErrSessionExpired = errors.New("session expired or invalidated")
	// ErrStoreUnavailable wraps relational store failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is returned by methods of an Engine not built through Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUserNotFound must be returned (or wrapped) by a UserProvider when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrDatabaseRequired is returned by Build without WithDB.
	ErrDatabaseRequired = errors.New("database handle required")
	// ErrUserProviderRequired is returned by Build without WithUserProvider.
	ErrUserProviderRequired = errors.New("user provider required")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// LockedError reports a login denied because the (username, IP) pair has
// reached the failure limit. errors.Is(err, ErrAccountLocked) holds.
type LockedError struct {
	Remaining time.Duration
}

// RemainingMinutes rounds the remaining lockout up to whole minutes.
func (e *LockedError) RemainingMinutes() int {
	if e == nil || e.Remaining <= 0 {
		return 0
	}
	return int((e.Remaining + time.Minute - 1) / time.Minute)
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: try again in %d minutes", ErrAccountLocked.Error(), e.RemainingMinutes())
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
