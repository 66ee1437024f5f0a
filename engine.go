package goSession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/janitor"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"gorm.io/gorm"
)

// Engine is the authentication and session subsystem. Build it with [New]
// and [Builder.Build]; it is safe for concurrent use afterwards.
//
// Engine keeps no in-process session or lockout state. Every decision is
// made against the database, so any number of engines may share one.
type Engine struct {
	config       Config
	db           *gorm.DB
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	jwtManager   *jwt.Manager
	verifier     password.Verifier
	userProvider UserProvider
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	janitor      *janitor.Janitor
	logger       *slog.Logger
	now          func() time.Time
	flows        flows.Service

	closeOnce sync.Once
}

// Login verifies credentials for username from clientIP and, on success,
// replaces any session the user already had with a new one and returns a
// signed access token bound to it.
//
// The lockout check runs first. While the (username, clientIP) pair is locked
// the password is not examined and the error is a [*LockedError], which
// satisfies errors.Is(err, ErrAccountLocked). Unknown users and wrong
// passwords both return [ErrInvalidCredentials]. A correct password on an
// inactive account returns [ErrAccountUnverified].
func (e *Engine) Login(ctx context.Context, username, password, clientIP, userAgent string) (string, error) {
	if e == nil || !e.flows.Initialized() {
		return "", ErrEngineNotReady
	}
	res, err := e.flows.Login(ctx, flows.LoginRequest{
		Username:  username,
		Password:  password,
		IP:        clientIP,
		UserAgent: userAgent,
	})
	if err != nil {
		return "", err
	}
	return res.AccessToken, nil
}

// Authenticate resolves a bearer token to the identity behind it. The token
// signature and expiry are checked before the store is touched. A valid token
// whose session was superseded, logged out or idle past its TTL returns
// [ErrSessionExpired]; every other token problem returns [ErrInvalidToken].
// A session whose owner has since been deactivated is ended and also reports
// [ErrSessionExpired].
// Success slides the session's idle deadline.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flows.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID:    res.User.UserID,
		Username:  res.User.Username,
		Email:     res.User.Email,
		Admin:     res.User.Admin,
		SessionID: res.Session.ID,
		ExpiresAt: res.Session.ExpiresAt,
	}, nil
}

// Logout ends the session bound to token. It never fails: garbage, forged or
// already-ended tokens are ignored and store errors are only logged.
func (e *Engine) Logout(ctx context.Context, token string) {
	if e == nil || !e.flows.Initialized() {
		return
	}
	e.flows.Logout(ctx, token)
}

// ListActiveSessions returns the user's usable sessions, newest first. With
// single-session enforcement this is at most one entry.
func (e *Engine) ListActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	rows, err := e.flows.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionInfo, 0, len(rows))
	for i := range rows {
		out = append(out, sessionInfoFrom(&rows[i]))
	}
	return out, nil
}

// ForceLogoutAll invalidates every active session of userID.
func (e *Engine) ForceLogoutAll(ctx context.Context, userID string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	_, err := e.flows.LogoutAll(ctx, userID)
	return err
}

// StartJanitor launches the background expiry sweep. It is a no-op when the
// janitor is disabled or already running. The loop stops when ctx is
// cancelled or on [Engine.Close].
func (e *Engine) StartJanitor(ctx context.Context) {
	if e == nil || e.janitor == nil {
		return
	}
	e.janitor.Start(ctx)
}

// SweepNow runs one sweep synchronously, outside the background schedule.
func (e *Engine) SweepNow(ctx context.Context) (JanitorResult, error) {
	if e == nil {
		return JanitorResult{}, ErrEngineNotReady
	}
	if e.janitor == nil {
		return JanitorResult{}, errors.New("goSession: janitor disabled")
	}
	res, err := e.janitor.Sweep(ctx)
	return JanitorResult(res), err
}

// Close stops the janitor and drains the audit dispatcher. The database
// handle is owned by the caller and stays open. Close is idempotent.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.janitor != nil {
			e.janitor.Stop()
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, n)
}

func (e *Engine) recordSweep(res janitor.Result, err error) {
	switch {
	case err != nil:
		e.metricInc(MetricJanitorFailure)
	case res.Skipped:
		e.metricInc(MetricJanitorSkipped)
	default:
		e.metricInc(MetricJanitorSweep)
		e.metricAdd(MetricSessionExpired, res.ExpiredSessions)
		e.metricAdd(MetricAttemptsPurged, res.PurgedAttempts)
	}
}
