package otel

import (
	"context"
	"errors"
	"fmt"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is what the exporter observes. *goConsole.Shell satisfies it.
type MetricsSource interface {
	MetricsSnapshot() goConsole.MetricsSnapshot
	AuditDropped() uint64
	AuditDelivered() uint64
}

// familySeries is one member of a labelled family with its attribute set
// precomputed.
type familySeries struct {
	id    goConsole.MetricID
	attrs metric.ObserveOption
}

type family struct {
	instrument metric.Int64ObservableCounter
	series     []familySeries
}

// OTelExporter publishes shell metrics as observable instruments.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration
	families     []family
	latency      metric.Int64ObservableGauge
	latencyCount metric.Int64ObservableGauge
	latencyLE    [internaldefs.BucketCount]metric.ObserveOption
	audit        metric.Int64ObservableCounter
}

var (
	auditDelivered = metric.WithAttributes(attribute.String("outcome", "delivered"))
	auditDropped   = metric.WithAttributes(attribute.String("outcome", "dropped"))
)

// NewOTelExporter registers instruments on meter that observe shell.
func NewOTelExporter(meter metric.Meter, shell *goConsole.Shell) (*OTelExporter, error) {
	if shell == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, shell)
}

// NewOTelExporterFromSource registers instruments that observe source.
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.Families {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter family %s: %w", def.Name, err)
		}
		f := family{instrument: ins}
		for _, m := range def.Members {
			f.series = append(f.series, familySeries{
				id:    m.ID,
				attrs: metric.WithAttributes(attribute.String(def.Label, m.Value)),
			})
		}
		e.families = append(e.families, f)
		observables = append(observables, ins)
	}

	var err error
	e.latency, err = meter.Int64ObservableGauge(
		internaldefs.LatencyName+"_bucket",
		metric.WithDescription("Cumulative fragment retrieval latency bucket counts."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency bucket gauge: %w", err)
	}
	e.latencyCount, err = meter.Int64ObservableGauge(
		internaldefs.LatencyName+"_count",
		metric.WithDescription("Fragment retrievals observed by the latency histogram."),
	)
	if err != nil {
		return nil, fmt.Errorf("create latency count gauge: %w", err)
	}
	for i, le := range internaldefs.LatencyBounds {
		e.latencyLE[i] = metric.WithAttributes(attribute.String("le", le))
	}

	e.audit, err = meter.Int64ObservableCounter(
		internaldefs.AuditEntriesName,
		metric.WithDescription(internaldefs.AuditEntriesHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit counter: %w", err)
	}
	observables = append(observables, e.latency, e.latencyCount, e.audit)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	if len(snapshot.Counters) > 0 {
		for _, f := range e.families {
			for _, s := range f.series {
				o.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]), s.attrs)
			}
		}
	}

	if raw, ok := snapshot.Histograms[goConsole.MetricModuleLoadLatency]; ok {
		cumulative := internaldefs.Cumulative(raw)
		for i, v := range cumulative {
			o.ObserveInt64(e.latency, int64(v), e.latencyLE[i])
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[internaldefs.BucketCount-1]))
	}

	o.ObserveInt64(e.audit, int64(e.source.AuditDelivered()), auditDelivered)
	o.ObserveInt64(e.audit, int64(e.source.AuditDropped()), auditDropped)
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
