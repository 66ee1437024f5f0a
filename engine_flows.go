package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
)

// newFlowService wires the engine's stores, metrics and audit into the flow
// dependency sets. It runs once from Build.
func newFlowService(e *Engine) flows.Service {
	emit := func(ctx context.Context, ev AuditEvent, err error) {
		e.emitAudit(ctx, ev, err)
	}
	inc := func(id int) { e.metricInc(MetricID(id)) }
	add := func(id int, n int64) { e.metricAdd(MetricID(id), n) }
	warn := func(msg string, args ...any) { e.logger.Warn(msg, args...) }

	login := flows.LoginDeps{
		CheckLogin:       e.rateLimiter.CheckLogin,
		RecordLogin:      e.rateLimiter.RecordLogin,
		RemainingLockout: e.rateLimiter.RemainingLockout,
		RateLimited:      rate.ErrRateLimited,

		GetUserByIdentifier: e.getUserByIdentifier,
		VerifyPassword:      e.verifier.Verify,

		CreateSession:     e.sessionStore.Create,
		InvalidateSession: e.sessionStore.Invalidate,
		IssueAccessToken: func(username, sessionToken string) (string, error) {
			return e.jwtManager.CreateAccess(username, sessionToken, 0)
		},

		MetricInc: inc,
		MetricAdd: add,
		EmitAudit: emit,
		Warn:      warn,

		Metrics: flows.LoginMetrics{
			LoginSuccess:      int(MetricLoginSuccess),
			LoginFailure:      int(MetricLoginFailure),
			LoginLocked:       int(MetricLoginLocked),
			LoginUnverified:   int(MetricLoginUnverified),
			SessionCreated:    int(MetricSessionCreated),
			SessionSuperseded: int(MetricSessionSuperseded),
		},
		Events: flows.LoginEvents{
			LoginSuccess:      auditEventLoginSuccess,
			LoginFailure:      auditEventLoginFailure,
			LoginLocked:       auditEventLoginLocked,
			LoginUnverified:   auditEventLoginUnverified,
			SessionSuperseded: auditEventSessionSuperseded,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			AccountUnverified:  ErrAccountUnverified,
			UserNotFound:       ErrUserNotFound,
			StoreUnavailable:   ErrStoreUnavailable,
			Locked: func(remaining time.Duration) error {
				return &LockedError{Remaining: remaining}
			},
		},
	}
	if e.config.Password.UpgradeOnLogin {
		wireHashUpgrade(&login, e)
	}

	authenticate := flows.AuthenticateDeps{
		ParseAccess:       e.jwtManager.ParseAccess,
		ValidateSession:   e.sessionStore.Validate,
		GetUserByID:       e.getUserByID,
		InvalidateSession: e.sessionStore.Invalidate,
		Now:               e.now,
		MetricInc:         inc,
		ObserveLatency: func(id int, d time.Duration) {
			if e.metrics != nil {
				e.metrics.Observe(MetricID(id), d)
			}
		},
		Metrics: flows.AuthenticateMetrics{
			Success: int(MetricAuthenticateSuccess),
			Failure: int(MetricAuthenticateFailure),
			Latency: int(MetricAuthenticateLatency),
		},
		Errors: flows.AuthenticateErrors{
			EngineNotReady:   ErrEngineNotReady,
			InvalidToken:     ErrInvalidToken,
			SessionExpired:   ErrSessionExpired,
			UserNotFound:     ErrUserNotFound,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}

	logout := flows.LogoutDeps{
		ParseForRevocation: e.jwtManager.ParseForRevocation,
		GetSession:         e.sessionStore.Get,
		InvalidateSession:  e.sessionStore.Invalidate,
		InvalidateAll:      e.sessionStore.InvalidateAll,
		ListActive:         e.sessionStore.ListActive,
		Now:                e.now,
		MetricInc:          inc,
		MetricAdd:          add,
		EmitAudit:          emit,
		Warn:               warn,
		Metrics: flows.LogoutMetrics{
			Logout:         int(MetricLogout),
			LogoutAll:      int(MetricLogoutAll),
			SessionRevoked: int(MetricSessionRevoked),
		},
		Events: flows.LogoutEvents{
			Logout:    auditEventLogout,
			LogoutAll: auditEventLogoutAll,
		},
		Errors: flows.LogoutErrors{
			EngineNotReady:   ErrEngineNotReady,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}

	return flows.New(flows.Deps{
		Login:        login,
		Authenticate: authenticate,
		Logout:       logout,
	})
}

// wireHashUpgrade enables rehash-on-login when both the verifier can hash and
// the provider can store the result.
func wireHashUpgrade(deps *flows.LoginDeps, e *Engine) {
	type upgrader interface {
		Hash(string) (string, error)
		NeedsUpgrade(string) (bool, error)
	}
	up, ok := e.verifier.(upgrader)
	if !ok {
		return
	}
	updater, ok := e.userProvider.(PasswordHashUpdater)
	if !ok {
		return
	}
	deps.PasswordNeedsUpgrade = up.NeedsUpgrade
	deps.HashPassword = up.Hash
	deps.UpdatePasswordHash = updater.UpdatePasswordHash
}

func (e *Engine) getUserByIdentifier(ctx context.Context, username string) (flows.UserRecord, error) {
	u, err := e.userProvider.GetUserByIdentifier(ctx, username)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return flows.UserRecord(u), nil
}

func (e *Engine) getUserByID(ctx context.Context, userID string) (flows.UserRecord, error) {
	u, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return flows.UserRecord{}, err
	}
	return flows.UserRecord(u), nil
}
