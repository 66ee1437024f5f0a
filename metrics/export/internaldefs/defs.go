package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one counter series.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one histogram series.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter fed from Engine.AuditDropped.
const AuditDroppedName = "gosession_audit_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: goSession.MetricLoginLocked, Name: "gosession_login_locked_total", Help: "Logins denied by the lockout check."},
	{ID: goSession.MetricLoginUnverified, Name: "gosession_login_unverified_total", Help: "Logins rejected for unverified accounts."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Created sessions."},
	{ID: goSession.MetricSessionSuperseded, Name: "gosession_session_superseded_total", Help: "Sessions deactivated by a newer login of the same user."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logout requests."},
	{ID: goSession.MetricLogoutAll, Name: "gosession_logout_all_total", Help: "Force-logout-all operations."},
	{ID: goSession.MetricSessionRevoked, Name: "gosession_session_revoked_total", Help: "Sessions ended by force-logout-all."},
	{ID: goSession.MetricAuthenticateSuccess, Name: "gosession_authenticate_success_total", Help: "Authenticated requests."},
	{ID: goSession.MetricAuthenticateFailure, Name: "gosession_authenticate_failure_total", Help: "Rejected bearer tokens."},
	{ID: goSession.MetricJanitorSweep, Name: "gosession_janitor_sweep_total", Help: "Completed janitor sweeps."},
	{ID: goSession.MetricJanitorFailure, Name: "gosession_janitor_failure_total", Help: "Failed janitor sweeps."},
	{ID: goSession.MetricJanitorSkipped, Name: "gosession_janitor_skipped_total", Help: "Sweeps skipped because another process held the lease."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Sessions marked expired by the janitor."},
	{ID: goSession.MetricAttemptsPurged, Name: "gosession_login_attempts_purged_total", Help: "Login attempt rows deleted by the janitor."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricAuthenticateLatency, Name: "gosession_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the Prometheus le labels of the fixed buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// CumulativeBuckets pads or truncates raw to eight buckets and returns the
// running totals.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
