package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// AuthenticateResult is the flow-local outcome of a bearer-token check.
type AuthenticateResult struct {
	Claims  *jwt.AccessClaims
	Session *session.Session
	User    UserRecord
}

// AuthenticateMetrics carries metric IDs needed by the authenticate flow.
type AuthenticateMetrics struct {
	Success int
	Failure int
	Latency int
}

// AuthenticateErrors carries host-level sentinel errors used by the authenticate flow.
type AuthenticateErrors struct {
	EngineNotReady   error
	InvalidToken     error
	SessionExpired   error
	UserNotFound     error
	StoreUnavailable error
}

// AuthenticateDeps captures bearer-token validation dependencies.
type AuthenticateDeps struct {
	ParseAccess     func(string) (*jwt.AccessClaims, error)
	ValidateSession func(context.Context, string) (*session.Session, error)
	GetUserByID     func(context.Context, string) (UserRecord, error)
	// InvalidateSession is optional and ends the session of a deactivated user.
	InvalidateSession func(context.Context, string) error

	Now            func() time.Time
	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)

	Metrics AuthenticateMetrics
	Errors  AuthenticateErrors
}

// RunAuthenticate verifies the token signature and expiry, then slides the
// bound session and resolves its user. Signature checks are pure CPU and run
// before any store access.
func RunAuthenticate(ctx context.Context, tokenStr string, deps AuthenticateDeps) (*AuthenticateResult, error) {
	if deps.ParseAccess == nil || deps.ValidateSession == nil || deps.GetUserByID == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(int, time.Duration) {}
	}

	start := deps.Now()
	res, err := authenticate(ctx, tokenStr, deps)
	deps.ObserveLatency(deps.Metrics.Latency, deps.Now().Sub(start))
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return nil, err
	}
	deps.MetricInc(deps.Metrics.Success)
	return res, nil
}

func authenticate(ctx context.Context, tokenStr string, deps AuthenticateDeps) (*AuthenticateResult, error) {
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return nil, errors.Join(deps.Errors.InvalidToken, err)
	}

	sess, err := deps.ValidateSession(ctx, claims.SID)
	if err != nil {
		return nil, errors.Join(deps.Errors.StoreUnavailable, err)
	}
	if sess == nil {
		return nil, deps.Errors.SessionExpired
	}

	user, err := deps.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if deps.Errors.UserNotFound != nil && errors.Is(err, deps.Errors.UserNotFound) {
			return nil, deps.Errors.InvalidToken
		}
		return nil, errors.Join(deps.Errors.StoreUnavailable, err)
	}
	// the token subject must name the session's owner
	if user.Username != claims.Username() {
		return nil, deps.Errors.InvalidToken
	}
	// a deactivated owner loses the session it already holds
	if !user.Active {
		if deps.InvalidateSession != nil {
			_ = deps.InvalidateSession(ctx, sess.Token)
		}
		return nil, deps.Errors.SessionExpired
	}

	return &AuthenticateResult{
		Claims:  claims,
		Session: sess,
		User:    user,
	}, nil
}
