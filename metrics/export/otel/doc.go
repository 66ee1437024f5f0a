// Package otel publishes goSession counters through OpenTelemetry.
//
// [Register] attaches observable instruments to any metric.Meter. Counters
// become Int64ObservableCounters, and the authenticate latency histogram
// becomes a cumulative bucket gauge keyed by an "le" attribute plus a count
// gauge. One callback reads a snapshot per collection cycle.
//
// [StartLogPipeline] owns a complete SDK meter provider whose periodic reader
// hands each collection to a [LogExporter], which writes it through slog. It
// is for deployments that ship logs but do not scrape /metrics.
package otel
