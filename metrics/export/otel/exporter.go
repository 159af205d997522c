package otel

import (
	"context"
	"errors"
	"fmt"

	linking "github.com/Kramarich000/sharkflow-linking"
	"github.com/Kramarich000/sharkflow-linking/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() linking.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         linking.MetricID
	instrument metric.Int64ObservableCounter
}

// OTelExporter registers the engine's counters as observable instruments
// on a Meter. Values are pulled from a snapshot on each collection.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter wires the given [linking.Engine] to a meter.
func NewOTelExporter(meter metric.Meter, engine *linking.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource wires a custom metrics source to a meter.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:   source,
		counters: make([]observedCounter, 0, len(internaldefs.CounterDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	dropped, err := meter.Int64ObservableCounter(
		"linking_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create observable counter linking_audit_dropped_total: %w", err)
	}
	exporter.auditDropped = dropped
	observables = append(observables, dropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register metrics callback: %w", err)
	}
	exporter.registration = registration

	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	return nil
}

// Shutdown unregisters the collection callback.
func (e *OTelExporter) Shutdown() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
