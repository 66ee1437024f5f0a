package otel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterName is the instrumentation scope used by [StartLogPipeline].
const MeterName = "github.com/MrEthical07/goSession"

// LogPipeline is a meter provider with a periodic reader feeding a
// [LogExporter], and the [Bridge] that publishes engine counters into it.
type LogPipeline struct {
	provider *sdkmetric.MeterProvider
	bridge   *Bridge
}

// StartLogPipeline logs a snapshot of source every interval until Shutdown.
func StartLogPipeline(source Source, logger *slog.Logger, interval time.Duration) (*LogPipeline, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("otel: log interval must be > 0, got %s", interval)
	}
	return startPipeline(source, sdkmetric.NewPeriodicReader(NewLogExporter(logger), sdkmetric.WithInterval(interval)))
}

func startPipeline(source Source, reader sdkmetric.Reader) (*LogPipeline, error) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	bridge, err := Register(provider.Meter(MeterName), source)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &LogPipeline{provider: provider, bridge: bridge}, nil
}

// Shutdown runs a final collection, stops the reader and detaches the bridge.
func (p *LogPipeline) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return errors.Join(p.provider.Shutdown(ctx), p.bridge.Close())
}
