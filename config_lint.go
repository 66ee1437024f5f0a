package goSession

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding of [Config.Lint].
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, w.Severity.String()+" "+w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that are valid but questionable. It never mutates c
// and complements Validate, which rejects settings that cannot work.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway above 1m widens the replay window of expired tokens")
	}
	if c.JWT.AccessTTL > 24*time.Hour {
		add("access_ttl_long", LintInfo, "access tokens outlive a day; revocation relies entirely on the session row")
	}
	if jwt.SigningMethod(c.JWT.SigningMethod) == jwt.MethodHS256 {
		add("signing_hs256", LintInfo, "HS256 shares one secret between signer and verifiers")
	}
	if c.Session.IdleTTL > time.Hour {
		add("session_idle_long", LintWarn, "idle sessions stay usable for more than an hour")
	}
	if c.Lockout.MaxAttempts > 10 {
		add("lockout_attempts_high", LintWarn, "more than 10 failures are tolerated per window")
	}
	if c.Lockout.Window > 0 && c.Lockout.Window < 5*time.Minute {
		add("lockout_window_short", LintWarn, "lockout window under 5m allows sustained guessing")
	}
	if !c.Janitor.Enabled {
		add("janitor_disabled", LintHigh, "expired sessions are never marked inactive and login_attempts grows without bound")
	}
	if c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2id memory below 64 MiB")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "login and logout events are not audited")
	}

	return out
}
