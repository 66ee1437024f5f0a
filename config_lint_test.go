package goSession

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigHasNoHighWarnings(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}
}

func TestLint_LargeLeeway(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.Leeway = 90 * time.Second
	if !containsCode(cfg.Lint().Codes(), "leeway_large") {
		t.Error("expected leeway_large warning")
	}
}

func TestLint_HS256Warning(t *testing.T) {
	cfg := DefaultConfig()
	if !containsCode(cfg.Lint().Codes(), "signing_hs256") {
		t.Error("expected signing_hs256 for the default signer")
	}
	cfg.JWT.SigningMethod = "ed25519"
	if containsCode(cfg.Lint().Codes(), "signing_hs256") {
		t.Error("ed25519 should not warn about hs256")
	}
}

func TestLint_LockoutSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lockout.MaxAttempts = 50
	cfg.Lockout.Window = time.Minute
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "lockout_attempts_high") || !containsCode(codes, "lockout_window_short") {
		t.Errorf("expected lockout warnings, got %v", codes)
	}
}

func TestLint_AuditDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = false
	if !containsCode(cfg.Lint().Codes(), "audit_disabled") {
		t.Error("expected audit_disabled warning")
	}
}

func TestLint_Argon2MemoryLow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password.Memory = 16 * 1024
	if !containsCode(cfg.Lint().Codes(), "argon2_memory_low") {
		t.Error("expected argon2_memory_low warning")
	}
}

func TestLint_NoWarningForGoodArgon2(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password.Memory = 64 * 1024
	if containsCode(cfg.Lint().Codes(), "argon2_memory_low") {
		t.Error("should not warn when memory == 64 MiB")
	}
}

func TestLint_JanitorDisabledIsHigh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Janitor.Enabled = false
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "janitor_disabled" {
		t.Fatalf("expected janitor_disabled as the only HIGH warning, got %v", high)
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Error("expected AsError(LintHigh) to fail")
	}
	for _, w := range ws.BySeverity(LintWarn) {
		if w.Severity < LintWarn {
			t.Errorf("BySeverity(LintWarn) returned %s", w.Severity)
		}
	}
}

func TestLintSeverityString(t *testing.T) {
	if LintHigh.String() != "HIGH" || LintSeverity(9).String() != "UNKNOWN" {
		t.Fatal("unexpected severity names")
	}
}

// helpers

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
