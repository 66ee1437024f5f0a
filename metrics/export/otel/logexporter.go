package otel

import (
	"context"
	"log/slog"
	"sync/atomic"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// LogExporter is an sdkmetric.Exporter that writes every collected data point
// as one structured log record.
type LogExporter struct {
	logger *slog.Logger
	level  slog.Level
	closed atomic.Bool
}

// NewLogExporter logs at Info through logger, or slog.Default when nil.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger, level: slog.LevelInfo}
}

// Temporality reports cumulative values for every instrument kind, matching
// the running totals the engine keeps.
func (e *LogExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

// Aggregation keeps the SDK defaults.
func (e *LogExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

// Export logs rm. Data types other than int64 sums and gauges are skipped.
func (e *LogExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if e.closed.Load() {
		return sdkmetric.ErrExporterShutdown
	}
	if rm == nil {
		return nil
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				e.logPoints(ctx, m.Name, data.DataPoints)
			case metricdata.Gauge[int64]:
				e.logPoints(ctx, m.Name, data.DataPoints)
			}
		}
	}
	return nil
}

func (e *LogExporter) logPoints(ctx context.Context, name string, points []metricdata.DataPoint[int64]) {
	for _, dp := range points {
		attrs := []slog.Attr{
			slog.String("metric", name),
			slog.Int64("value", dp.Value),
		}
		for iter := dp.Attributes.Iter(); iter.Next(); {
			kv := iter.Attribute()
			attrs = append(attrs, slog.String(string(kv.Key), kv.Value.Emit()))
		}
		e.logger.LogAttrs(ctx, e.level, "gosession metric", attrs...)
	}
}

// ForceFlush has nothing buffered to flush.
func (e *LogExporter) ForceFlush(context.Context) error {
	return nil
}

// Shutdown makes later Export calls fail.
func (e *LogExporter) Shutdown(context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return sdkmetric.ErrExporterShutdown
	}
	return nil
}

var _ sdkmetric.Exporter = (*LogExporter)(nil)
