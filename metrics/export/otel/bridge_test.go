package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type stubSource struct {
	mu       sync.Mutex
	counters map[goSession.MetricID]uint64
	latency  []uint64
	dropped  uint64
}

func (s *stubSource) MetricsSnapshot() goSession.MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := goSession.MetricsSnapshot{
		Counters:   make(map[goSession.MetricID]uint64, len(s.counters)),
		Histograms: map[goSession.MetricID][]uint64{},
	}
	for id, v := range s.counters {
		snap.Counters[id] = v
	}
	if s.latency != nil {
		snap.Histograms[goSession.MetricAuthenticateLatency] = append([]uint64(nil), s.latency...)
	}
	return snap
}

func (s *stubSource) AuditDropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *stubSource) set(id goSession.MetricID, v uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[id] = v
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	return rm
}

// points returns the int64 data points of the named metric, keyed by the le
// attribute ("" when absent).
func points(rm metricdata.ResourceMetrics, name string) map[string]int64 {
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			var dps []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				dps = data.DataPoints
			case metricdata.Gauge[int64]:
				dps = data.DataPoints
			}
			for _, dp := range dps {
				le, _ := dp.Attributes.Value(attribute.Key("le"))
				out[le.AsString()] = dp.Value
			}
		}
	}
	return out
}

func newBridge(t *testing.T, src Source) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	b, err := Register(provider.Meter("gosession-test"), src)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
		_ = provider.Shutdown(context.Background())
	})
	return reader
}

func TestBridgePublishesCounters(t *testing.T) {
	src := &stubSource{
		counters: map[goSession.MetricID]uint64{
			goSession.MetricLoginSuccess: 3,
			goSession.MetricLoginLocked:  2,
		},
		dropped: 1,
	}
	reader := newBridge(t, src)

	rm := collect(t, reader)
	if got := points(rm, "gosession_login_locked_total")[""]; got != 2 {
		t.Fatalf("login_locked = %d, want 2", got)
	}
	if got := points(rm, "gosession_audit_dropped_total")[""]; got != 1 {
		t.Fatalf("audit_dropped = %d, want 1", got)
	}

	src.set(goSession.MetricLoginSuccess, 7)
	rm = collect(t, reader)
	if got := points(rm, "gosession_login_success_total")[""]; got != 7 {
		t.Fatalf("login_success after update = %d, want 7", got)
	}
}

func TestBridgePublishesCumulativeLatencyBuckets(t *testing.T) {
	src := &stubSource{
		counters: map[goSession.MetricID]uint64{},
		latency:  []uint64{2, 1, 0, 0, 0, 0, 0, 1},
	}
	reader := newBridge(t, src)

	rm := collect(t, reader)
	buckets := points(rm, "gosession_authenticate_latency_seconds_bucket")
	want := map[string]int64{"0.005": 2, "0.01": 3, "0.5": 3, "+Inf": 4}
	for le, v := range want {
		if buckets[le] != v {
			t.Errorf("bucket le=%s = %d, want %d", le, buckets[le], v)
		}
	}
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %v", buckets)
	}
	if got := points(rm, "gosession_authenticate_latency_seconds_count")[""]; got != 4 {
		t.Fatalf("count = %d, want 4", got)
	}
}

func TestRegisterRejectsNilInputs(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	meter := provider.Meter("gosession-test")

	if _, err := Register(meter, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := Register(nil, &stubSource{}); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestBridgeConcurrentCollect(t *testing.T) {
	src := &stubSource{counters: map[goSession.MetricID]uint64{}}
	reader := newBridge(t, src)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.set(goSession.MetricLoginSuccess, v)
			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
