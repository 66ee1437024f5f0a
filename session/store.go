package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStoreUnavailable is returned when the relational store rejects or cannot serve a query.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrConcurrentLogin is returned when Create keeps losing the single-active-session
// race against other logins of the same user.
var ErrConcurrentLogin = errors.New("concurrent login for user")

// ErrEmptyUserID is returned when Create is called without a user.
var ErrEmptyUserID = errors.New("empty user id")

// DefaultTTL is the sliding idle lifetime of a session.
const DefaultTTL = 15 * time.Minute

const (
	maxCreateAttempts = 3
	oneActiveIndex    = "ux_user_sessions_one_active"
)

// Store persists sessions in a relational database through gorm. It keeps no
// in-process state: the single-active-session guarantee comes from the partial
// unique index created by [Migrate] and the transaction in [Store.Create].
//
// Store is safe for concurrent use.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewStore creates a session [Store] backed by db. A non-positive ttl selects
// [DefaultTTL]; a nil now selects time.Now.
func NewStore(db *gorm.DB, ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		db:  db,
		ttl: ttl,
		now: now,
	}
}

// Migrate creates the sessions table, its indexes and the partial unique index
// that allows at most one active row per user.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Session{}); err != nil {
		return fmt.Errorf("migrate sessions: %w", err)
	}
	ddl := "CREATE UNIQUE INDEX IF NOT EXISTS " + oneActiveIndex +
		" ON user_sessions (user_id) WHERE is_active"
	if err := db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("migrate sessions: %w", err)
	}
	return nil
}

// WithTx returns a copy of the store whose queries run inside tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	c := *s
	c.db = tx
	return &c
}

// TTL returns the sliding session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// Create deactivates every active session of userID and inserts a fresh one
// in a single transaction.
//
// Two logins for the same user racing each other can both observe "no active
// session"; the loser's insert then violates the partial unique index, its
// transaction rolls back and the whole unit is retried so that it supersedes
// the winner. After maxCreateAttempts lost races Create gives up with
// [ErrConcurrentLogin].
func (s *Store) Create(ctx context.Context, userID, ip, userAgent string) (*Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		sess, err := s.tryCreate(ctx, userID, ip, userAgent)
		if err == nil {
			return sess, nil
		}
		if !s.isDuplicate(err) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
		}
	}

	return nil, ErrConcurrentLogin
}

// isDuplicate reports a unique-index violation whether or not the handle was
// opened with TranslateError.
func (s *Store) isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if tr, ok := s.db.Dialector.(gorm.ErrorTranslator); ok {
		return errors.Is(tr.Translate(err), gorm.ErrDuplicatedKey)
	}
	return false
}

func (s *Store) tryCreate(ctx context.Context, userID, ip, userAgent string) (*Session, error) {
	token, err := internal.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Token:        token,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.ttl),
		IsActive:     true,
		IP:           ip,
		UserAgent:    userAgent,
		EndReason:    EndNone,
	}

	var superseded int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Session{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Updates(map[string]any{
				"is_active":  false,
				"ended_at":   now,
				"end_reason": EndSuperseded,
			})
		if res.Error != nil {
			return res.Error
		}
		superseded = res.RowsAffected

		return tx.Create(sess).Error
	})
	if err != nil {
		return nil, err
	}

	sess.Superseded = superseded
	return sess, nil
}

// Validate looks up an active, unexpired session by its opaque token and
// slides its window (last_activity = now, expires_at = now + TTL) before
// returning it. A miss (unknown, inactive or expired) returns (nil, nil).
//
//	Performance: 1 conditional UPDATE on the unique token index + 1 indexed read.
func (s *Store) Validate(ctx context.Context, token string) (*Session, error) {
	if !internal.ValidSessionTokenShape(token) {
		return nil, nil
	}

	now := s.clock()
	var (
		sess  Session
		found bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Session{}).
			Where("session_token = ? AND is_active = ? AND expires_at > ?", token, true, now).
			Updates(map[string]any{
				"last_activity": now,
				"expires_at":    now.Add(s.ttl),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true
		return tx.Where("session_token = ?", token).Take(&sess).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return nil, nil
	}

	return &sess, nil
}

// Get fetches a session by token without sliding its window or checking expiry.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	if !internal.ValidSessionTokenShape(token) {
		return nil, nil
	}

	var sess Session
	err := s.db.WithContext(ctx).Where("session_token = ?", token).Take(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &sess, nil
}

// Invalidate marks the session identified by token inactive. Unknown or
// already inactive tokens are a silent no-op.
func (s *Store) Invalidate(ctx context.Context, token string) error {
	if !internal.ValidSessionTokenShape(token) {
		return nil
	}

	now := s.clock()
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("session_token = ? AND is_active = ?", token, true).
		Updates(map[string]any{
			"is_active":  false,
			"ended_at":   now,
			"end_reason": EndLogout,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// InvalidateAll marks every active session of userID inactive and reports how
// many rows changed.
func (s *Store) InvalidateAll(ctx context.Context, userID string) (int64, error) {
	now := s.clock()
	res := s.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{
			"is_active":  false,
			"ended_at":   now,
			"end_reason": EndRevoked,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// ListActive returns the user's usable sessions, newest first. Rows whose
// expiry has passed but which the janitor has not swept yet are left out.
func (s *Store) ListActive(ctx context.Context, userID string) ([]Session, error) {
	now := s.clock()
	var out []Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, now).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

// ExpireStale marks inactive every active session whose expires_at has passed.
// Running it twice without intervening writes changes zero rows the second time.
func (s *Store) ExpireStale(ctx context.Context) (int64, error) {
	now := s.clock()
	res := s.db.WithContext(ctx).Model(&Session{}).
		Where("is_active = ? AND expires_at <= ?", true, now).
		Updates(map[string]any{
			"is_active":  false,
			"ended_at":   now,
			"end_reason": EndExpired,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks database reachability and returns the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	sqlDB, err := s.db.DB()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
