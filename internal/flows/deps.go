package flows

import (
	"context"

	"github.com/MrEthical07/goSession/internal/audit"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login        LoginDeps
	Authenticate AuthenticateDeps
	Logout       LogoutDeps
}

// UserRecord is the flow-local view of a provider user.
type UserRecord struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Admin        bool
}

// EmitFunc delivers an audit event. Engine fills in the timestamp and maps
// err to an audit error code.
type EmitFunc func(ctx context.Context, event audit.Event, err error)

func noopEmit(context.Context, audit.Event, error) {}

func noopMetric(int) {}

func noopMetricAdd(int, int64) {}

func noopWarn(string, ...any) {}
