package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// leAttr carries a histogram bucket's upper bound.
const leAttr attribute.Key = "le"

// Source is read once per collection. *goSession.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// reading is one observation taken from a snapshot.
type reading struct {
	instrument metric.Int64Observable
	value      func(snap goSession.MetricsSnapshot, dropped uint64) int64
	opts       []metric.ObserveOption
}

// Bridge keeps the callback registration alive. Close detaches it.
type Bridge struct {
	source      Source
	readings    []reading
	instruments []metric.Observable
	reg         metric.Registration
}

// Register creates one instrument per counter and histogram series on meter
// and a callback that fills them from source.
func Register(meter metric.Meter, source Source) (*Bridge, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	b := &Bridge{source: source}
	for _, def := range internaldefs.CounterDefs {
		if err := b.addCounter(meter, def.Name, def.Help, counterValue(def.ID)); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		if err := b.addHistogram(meter, def); err != nil {
			return nil, err
		}
	}
	dropped := func(_ goSession.MetricsSnapshot, n uint64) int64 { return int64(n) }
	if err := b.addCounter(meter, internaldefs.AuditDroppedName, "Audit events dropped on a full buffer.", dropped); err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(b.observe, b.instruments...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	b.reg = reg
	return b, nil
}

func counterValue(id goSession.MetricID) func(goSession.MetricsSnapshot, uint64) int64 {
	return func(snap goSession.MetricsSnapshot, _ uint64) int64 {
		return int64(snap.Counters[id])
	}
}

func (b *Bridge) addCounter(meter metric.Meter, name, help string, value func(goSession.MetricsSnapshot, uint64) int64) error {
	ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("otel: counter %s: %w", name, err)
	}
	b.instruments = append(b.instruments, ins)
	b.readings = append(b.readings, reading{instrument: ins, value: value})
	return nil
}

func (b *Bridge) addHistogram(meter metric.Meter, def internaldefs.HistogramDef) error {
	buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return fmt.Errorf("otel: histogram %s: %w", def.Name, err)
	}
	b.instruments = append(b.instruments, buckets)
	for i, bound := range internaldefs.HistogramBounds {
		b.readings = append(b.readings, reading{
			instrument: buckets,
			value: func(snap goSession.MetricsSnapshot, _ uint64) int64 {
				return int64(internaldefs.CumulativeBuckets(snap.Histograms[def.ID])[i])
			},
			opts: []metric.ObserveOption{metric.WithAttributes(leAttr.String(bound))},
		})
	}

	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return fmt.Errorf("otel: histogram %s: %w", def.Name, err)
	}
	b.instruments = append(b.instruments, count)
	b.readings = append(b.readings, reading{
		instrument: count,
		value: func(snap goSession.MetricsSnapshot, _ uint64) int64 {
			cum := internaldefs.CumulativeBuckets(snap.Histograms[def.ID])
			return int64(cum[len(cum)-1])
		},
	})
	return nil
}

func (b *Bridge) observe(_ context.Context, o metric.Observer) error {
	snap := b.source.MetricsSnapshot()
	dropped := b.source.AuditDropped()
	for _, r := range b.readings {
		o.ObserveInt64(r.instrument, r.value(snap, dropped), r.opts...)
	}
	return nil
}

// Close detaches the callback. The instruments stay registered but report
// nothing afterwards.
func (b *Bridge) Close() error {
	if b == nil || b.reg == nil {
		return nil
	}
	return b.reg.Unregister()
}
