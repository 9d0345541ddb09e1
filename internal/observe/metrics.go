// Package observe provides OpenTelemetry metrics for the presence engine,
// exported through a Prometheus bridge so the standard /metrics endpoint
// keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all engine metrics.
const meterName = "github.com/purrlab/go-whisker"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// Ticks counts window flushes processed by the engine.
	Ticks metric.Int64Counter

	// Detections counts classifier detections ingested. Use with attribute:
	//   attribute.String("source", "visual"|"acoustic")
	Detections metric.Int64Counter

	// Transitions counts committed state transitions. Use with attribute:
	//   attribute.String("state", ...)
	Transitions metric.Int64Counter

	// DeepCalls counts deep-analysis attempts. Use with attribute:
	//   attribute.String("status", "ok"|"error"|"declined")
	DeepCalls metric.Int64Counter

	// ObserverErrors counts observer failures during dispatch. Use with
	// attribute: attribute.String("observer", ...)
	ObserverErrors metric.Int64Counter

	// FlushDuration tracks how long one window flush plus dispatch takes.
	FlushDuration metric.Float64Histogram

	// HostConnections tracks host devices connected to the monitor server.
	HostConnections metric.Int64UpDownCounter
}

// flushBuckets defines histogram bucket boundaries (in seconds) sized for a
// tick loop that should stay well under the window interval.
var flushBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Ticks, err = m.Int64Counter("whisker.engine.ticks",
		metric.WithDescription("Total window flushes processed."),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("whisker.engine.detections",
		metric.WithDescription("Total classifier detections ingested, by source."),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("whisker.engine.transitions",
		metric.WithDescription("Total committed state transitions, by new state."),
	); err != nil {
		return nil, err
	}
	if met.DeepCalls, err = m.Int64Counter("whisker.deepsight.calls",
		metric.WithDescription("Total deep-analysis attempts, by status."),
	); err != nil {
		return nil, err
	}
	if met.ObserverErrors, err = m.Int64Counter("whisker.react.observer_errors",
		metric.WithDescription("Total observer failures during dispatch, by observer."),
	); err != nil {
		return nil, err
	}
	if met.FlushDuration, err = m.Float64Histogram("whisker.engine.flush.duration",
		metric.WithDescription("Window flush plus dispatch latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(flushBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HostConnections, err = m.Int64UpDownCounter("whisker.monitor.hosts",
		metric.WithDescription("Host devices connected to the monitor server."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordDetection records one ingested detection for a source.
func (m *Metrics) RecordDetection(ctx context.Context, source string) {
	m.Detections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordTransition records one committed transition into a new state.
func (m *Metrics) RecordTransition(ctx context.Context, state string) {
	m.Transitions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("state", state)),
	)
}

// RecordDeepCall records one deep-analysis attempt outcome.
func (m *Metrics) RecordDeepCall(ctx context.Context, status string) {
	m.DeepCalls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
