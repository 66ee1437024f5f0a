package goSession

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginLocked       = "login_locked"
	auditEventLoginUnverified   = "login_unverified"
	auditEventSessionSuperseded = "session_superseded"
	auditEventLogout            = "logout"
	auditEventLogoutAll         = "logout_all"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent, err error) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = e.now().UTC()
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountUnverified):
		return auditErrAccountUnverified
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
