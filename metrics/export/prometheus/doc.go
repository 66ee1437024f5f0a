// Package prometheus renders goSession metrics in the Prometheus text
// exposition format.
//
// Counter names are prefixed gosession_*_total; the single histogram is
// gosession_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
