package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
)

// LoginRequest carries the caller-supplied login inputs.
type LoginRequest struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	AccessToken string
	UserID      string
	SessionID   string
	Superseded  int64
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess      int
	LoginFailure      int
	LoginLocked       int
	LoginUnverified   int
	SessionCreated    int
	SessionSuperseded int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess      string
	LoginFailure      string
	LoginLocked       string
	LoginUnverified   string
	SessionSuperseded string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountUnverified  error
	UserNotFound       error
	StoreUnavailable   error
	// Locked builds the host lockout error for the remaining lockout time.
	Locked func(remaining time.Duration) error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	CheckLogin       func(context.Context, string, string) error
	RecordLogin      func(context.Context, rate.Attempt) error
	RemainingLockout func(context.Context, string, string) (time.Duration, bool, error)
	// RateLimited is the sentinel CheckLogin wraps when the pair is locked.
	RateLimited error

	GetUserByIdentifier func(context.Context, string) (UserRecord, error)
	VerifyPassword      func(string, string) (bool, error)

	// Optional hash upgrade on successful login. Runs only when all three are set.
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)
	UpdatePasswordHash   func(context.Context, string, string) error

	CreateSession     func(context.Context, string, string, string) (*session.Session, error)
	InvalidateSession func(context.Context, string) error
	IssueAccessToken  func(username, sessionToken string) (string, error)

	MetricInc func(int)
	MetricAdd func(int, int64)
	EmitAudit EmitFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin executes the login flow: lockout check, credential verification,
// attempt recording, session creation and token issuance, in that order. The
// lockout check runs before any user lookup or password hashing.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.MetricAdd == nil {
		deps.MetricAdd = noopMetricAdd
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopEmit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.CheckLogin == nil ||
		deps.RecordLogin == nil ||
		deps.GetUserByIdentifier == nil ||
		deps.VerifyPassword == nil ||
		deps.CreateSession == nil ||
		deps.IssueAccessToken == nil ||
		deps.Errors.Locked == nil {
		return nil, deps.Errors.EngineNotReady
	}

	base := audit.Event{
		Username:  req.Username,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	}

	if err := deps.CheckLogin(ctx, req.Username, req.IP); err != nil {
		if deps.RateLimited == nil || !errors.Is(err, deps.RateLimited) {
			return nil, errors.Join(deps.Errors.StoreUnavailable, err)
		}
		return nil, denyLocked(ctx, req, base, deps)
	}

	if req.Password == "" {
		return nil, rejectCredentials(ctx, req, nil, base, "empty_password", deps)
	}

	user, err := deps.GetUserByIdentifier(ctx, req.Username)
	if err != nil {
		if deps.Errors.UserNotFound != nil && errors.Is(err, deps.Errors.UserNotFound) {
			return nil, rejectCredentials(ctx, req, nil, base, "user_not_found", deps)
		}
		return nil, errors.Join(deps.Errors.StoreUnavailable, err)
	}

	ok, err := deps.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		deps.Warn("goSession: password verification failed", "user_id", user.UserID, "err", err)
	}
	if err != nil || !ok {
		return nil, rejectCredentials(ctx, req, &user.UserID, base, "password_mismatch", deps)
	}

	base.UserID = user.UserID
	if err := deps.RecordLogin(ctx, rate.Attempt{
		UserID:    &user.UserID,
		Username:  req.Username,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Success:   true,
	}); err != nil {
		return nil, errors.Join(deps.Errors.StoreUnavailable, err)
	}

	if !user.Active {
		deps.MetricInc(deps.Metrics.LoginUnverified)
		ev := base
		ev.EventType = deps.Events.LoginUnverified
		deps.EmitAudit(ctx, ev, deps.Errors.AccountUnverified)
		return nil, deps.Errors.AccountUnverified
	}

	upgradePasswordHash(ctx, req.Password, user, deps)

	sess, err := deps.CreateSession(ctx, user.UserID, req.IP, req.UserAgent)
	if err != nil {
		return nil, errors.Join(deps.Errors.StoreUnavailable, err)
	}
	if sess.Superseded > 0 {
		deps.MetricAdd(deps.Metrics.SessionSuperseded, sess.Superseded)
		ev := base
		ev.EventType = deps.Events.SessionSuperseded
		ev.SessionID = sess.ID
		ev.Success = true
		deps.EmitAudit(ctx, ev, nil)
	}

	token, err := deps.IssueAccessToken(user.Username, sess.Token)
	if err != nil {
		if deps.InvalidateSession != nil {
			if invErr := deps.InvalidateSession(context.WithoutCancel(ctx), sess.Token); invErr != nil {
				deps.Warn("goSession: rollback of unissued session failed", "session_id", sess.ID, "err", invErr)
			}
		}
		return nil, err
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	ev := base
	ev.EventType = deps.Events.LoginSuccess
	ev.SessionID = sess.ID
	ev.Success = true
	deps.EmitAudit(ctx, ev, nil)

	return &LoginResult{
		AccessToken: token,
		UserID:      user.UserID,
		SessionID:   sess.ID,
		Superseded:  sess.Superseded,
	}, nil
}

// denyLocked records the denied attempt as a failure and builds the lockout
// error carrying the time left until the pair unlocks.
func denyLocked(ctx context.Context, req LoginRequest, base audit.Event, deps LoginDeps) error {
	if err := deps.RecordLogin(ctx, rate.Attempt{
		Username:  req.Username,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	}); err != nil {
		deps.Warn("goSession: recording denied login failed", "username", req.Username, "err", err)
	}

	var remaining time.Duration
	if deps.RemainingLockout != nil {
		r, _, err := deps.RemainingLockout(ctx, req.Username, req.IP)
		if err != nil {
			deps.Warn("goSession: remaining lockout lookup failed", "username", req.Username, "err", err)
		}
		remaining = r
	}

	lockErr := deps.Errors.Locked(remaining)
	deps.MetricInc(deps.Metrics.LoginLocked)
	ev := base
	ev.EventType = deps.Events.LoginLocked
	ev.Metadata = map[string]string{"remaining": remaining.String()}
	deps.EmitAudit(ctx, ev, lockErr)
	return lockErr
}

func rejectCredentials(ctx context.Context, req LoginRequest, userID *string, base audit.Event, reason string, deps LoginDeps) error {
	if err := deps.RecordLogin(ctx, rate.Attempt{
		UserID:    userID,
		Username:  req.Username,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	}); err != nil {
		deps.Warn("goSession: recording failed login failed", "username", req.Username, "err", err)
	}

	deps.MetricInc(deps.Metrics.LoginFailure)
	ev := base
	if userID != nil {
		ev.UserID = *userID
	}
	ev.EventType = deps.Events.LoginFailure
	ev.Metadata = map[string]string{"reason": reason}
	deps.EmitAudit(ctx, ev, deps.Errors.InvalidCredentials)
	return deps.Errors.InvalidCredentials
}

func upgradePasswordHash(ctx context.Context, password string, user UserRecord, deps LoginDeps) {
	if deps.PasswordNeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}
	needs, err := deps.PasswordNeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	upgraded, err := deps.HashPassword(password)
	if err != nil {
		deps.Warn("goSession: password hash upgrade generation failed", "user_id", user.UserID, "err", err)
		return
	}
	if err := deps.UpdatePasswordHash(ctx, user.UserID, upgraded); err != nil {
		deps.Warn("goSession: password hash upgrade update failed", "user_id", user.UserID, "err", err)
	}
}
