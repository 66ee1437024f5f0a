package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.ParseAccess != nil
}

func (s Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) Authenticate(ctx context.Context, tokenStr string) (*AuthenticateResult, error) {
	return RunAuthenticate(ctx, tokenStr, s.deps.Authenticate)
}

func (s Service) Logout(ctx context.Context, tokenStr string) {
	RunLogout(ctx, tokenStr, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	return RunLogoutAll(ctx, userID, s.deps.Logout)
}

func (s Service) ListSessions(ctx context.Context, userID string) ([]session.Session, error) {
	return RunListSessions(ctx, userID, s.deps.Logout)
}
