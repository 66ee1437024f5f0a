package goSession

import "time"

// SecurityReport summarizes the security-relevant settings of a built engine.
// The server binary logs it at startup.
type SecurityReport struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	SessionIdleTTL     time.Duration
	SingleSession      bool
	MaxLoginAttempts   int
	LockoutWindow      time.Duration
	Argon2             PasswordConfigReport
	HashUpgradeOnLogin bool
	JanitorEnabled     bool
	FleetLease         bool
	AuditEnabled       bool
	LintWarnings       []string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	lint := e.config.Lint()

	return SecurityReport{
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		SessionIdleTTL:   e.config.Session.IdleTTL,
		SingleSession:    true,
		MaxLoginAttempts: e.config.Lockout.MaxAttempts,
		LockoutWindow:    e.config.Lockout.Window,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		HashUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		JanitorEnabled:     e.janitor != nil,
		FleetLease:         e.janitor != nil && e.janitor.Leased(),
		AuditEnabled:       e.audit != nil,
		LintWarnings:       lint.Codes(),
	}
}
