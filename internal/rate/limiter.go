package rate

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Defaults applied by New for non-positive config values.
const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// Config holds lockout tuning parameters.
type Config struct {
	MaxLoginAttempts int
	LockoutDuration  time.Duration
}

// Limiter evaluates and records login attempts per (username, ip) pair
// against the persistent attempt log.
type Limiter struct {
	db     *gorm.DB
	config Config
	now    func() time.Time
}

// New creates a rate [Limiter] backed by db.
func New(db *gorm.DB, cfg Config, now func() time.Time) *Limiter {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = DefaultMaxLoginAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		db:     db,
		config: cfg,
		now:    now,
	}
}

// Migrate creates the login_attempts table and its indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&LoginAttempt{}); err != nil {
		return fmt.Errorf("migrate login attempts: %w", err)
	}
	return nil
}

// WithTx returns a copy of the limiter whose queries run inside tx.
func (l *Limiter) WithTx(tx *gorm.DB) *Limiter {
	c := *l
	c.db = tx
	return &c
}

func (l *Limiter) clock() time.Time {
	return l.now().UTC()
}

// CheckLogin returns [ErrRateLimited] when the pair has reached the failure
// budget inside the trailing window. It must run before any credential
// verification.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	count, err := l.FailureCount(ctx, username, ip)
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// FailureCount returns the number of failed attempts for the pair with
// attempted_at > now - LockoutDuration.
func (l *Limiter) FailureCount(ctx context.Context, username, ip string) (int64, error) {
	cutoff := l.clock().Add(-l.config.LockoutDuration)

	var count int64
	err := l.db.WithContext(ctx).Model(&LoginAttempt{}).
		Where("username = ? AND ip_address = ? AND success = ? AND attempted_at > ?", username, ip, false, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// RecordLogin appends one attempt row. It is called after every attempt,
// including those CheckLogin denied.
func (l *Limiter) RecordLogin(ctx context.Context, a Attempt) error {
	row := &LoginAttempt{
		UserID:      a.UserID,
		Username:    a.Username,
		IP:          a.IP,
		Success:     a.Success,
		AttemptedAt: l.clock(),
		UserAgent:   a.UserAgent,
	}
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RemainingLockout reports how long the pair stays locked if no further
// attempts arrive. The lock lifts when the MaxLoginAttempts-th most recent
// failure leaves the window; with exactly MaxLoginAttempts failures that is
// the oldest one. ok is false when the pair is not locked.
func (l *Limiter) RemainingLockout(ctx context.Context, username, ip string) (time.Duration, bool, error) {
	now := l.clock()
	cutoff := now.Add(-l.config.LockoutDuration)

	var times []time.Time
	err := l.db.WithContext(ctx).Model(&LoginAttempt{}).
		Where("username = ? AND ip_address = ? AND success = ? AND attempted_at > ?", username, ip, false, cutoff).
		Order("attempted_at DESC").
		Limit(l.config.MaxLoginAttempts).
		Pluck("attempted_at", &times).Error
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(times) < l.config.MaxLoginAttempts {
		return 0, false, nil
	}

	unlock := times[len(times)-1].Add(l.config.LockoutDuration)
	remaining := unlock.Sub(now)
	if remaining <= 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}

// PurgeBefore hard-deletes every attempt with attempted_at < cutoff and
// reports how many rows went.
func (l *Limiter) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := l.db.WithContext(ctx).
		Where("attempted_at < ?", cutoff.UTC()).
		Delete(&LoginAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}
