package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// LogoutMetrics carries metric IDs needed by logout flows.
type LogoutMetrics struct {
	Logout         int
	LogoutAll      int
	SessionRevoked int
}

// LogoutEvents carries audit event names used by logout flows.
type LogoutEvents struct {
	Logout    string
	LogoutAll string
}

// LogoutErrors carries host-level sentinel errors used by logout flows.
type LogoutErrors struct {
	EngineNotReady   error
	StoreUnavailable error
}

// LogoutDeps captures logout and revocation dependencies.
type LogoutDeps struct {
	ParseForRevocation func(string) (*jwt.AccessClaims, error)
	GetSession         func(context.Context, string) (*session.Session, error)
	InvalidateSession  func(context.Context, string) error
	InvalidateAll      func(context.Context, string) (int64, error)
	ListActive         func(context.Context, string) ([]session.Session, error)

	Now       func() time.Time
	MetricInc func(int)
	MetricAdd func(int, int64)
	EmitAudit EmitFunc
	Warn      func(string, ...any)

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

func (d *LogoutDeps) defaults() {
	if d.MetricInc == nil {
		d.MetricInc = noopMetric
	}
	if d.MetricAdd == nil {
		d.MetricAdd = noopMetricAdd
	}
	if d.EmitAudit == nil {
		d.EmitAudit = noopEmit
	}
	if d.Warn == nil {
		d.Warn = noopWarn
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// RunLogout invalidates the session bound to tokenStr. It is best-effort and
// never fails: malformed, forged or unknown tokens and store errors are logged
// and swallowed. An expired but correctly signed token still revokes its
// session.
func RunLogout(ctx context.Context, tokenStr string, deps LogoutDeps) {
	deps.defaults()
	if deps.ParseForRevocation == nil || deps.InvalidateSession == nil {
		deps.Warn("goSession: logout called before engine was initialized")
		return
	}

	claims, err := deps.ParseForRevocation(tokenStr)
	if err != nil {
		return
	}

	ev := audit.Event{
		EventType: deps.Events.Logout,
		Username:  claims.Username(),
		Success:   true,
	}
	if deps.GetSession != nil {
		if sess, err := deps.GetSession(ctx, claims.SID); err == nil && sess != nil {
			ev.UserID = sess.UserID
			ev.SessionID = sess.ID
			ev.Metadata = map[string]string{"prior_state": sess.StateAt(deps.Now()).String()}
		}
	}

	if err := deps.InvalidateSession(ctx, claims.SID); err != nil {
		deps.Warn("goSession: logout invalidation failed", "err", err)
		return
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, ev, nil)
}

// RunLogoutAll deactivates every active session of userID.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int64, error) {
	deps.defaults()
	if deps.InvalidateAll == nil {
		return 0, deps.Errors.EngineNotReady
	}

	n, err := deps.InvalidateAll(ctx, userID)
	if err != nil {
		return 0, errors.Join(deps.Errors.StoreUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.MetricAdd(deps.Metrics.SessionRevoked, n)
	deps.EmitAudit(ctx, audit.Event{
		EventType: deps.Events.LogoutAll,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"sessions": strconv.FormatInt(n, 10)},
	}, nil)
	return n, nil
}

// RunListSessions returns the usable sessions of userID, newest first.
func RunListSessions(ctx context.Context, userID string, deps LogoutDeps) ([]session.Session, error) {
	if deps.ListActive == nil {
		return nil, deps.Errors.EngineNotReady
	}
	out, err := deps.ListActive(ctx, userID)
	if err != nil {
		return nil, errors.Join(deps.Errors.StoreUnavailable, err)
	}
	return out, nil
}
