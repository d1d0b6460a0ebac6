// Package observe provides application-wide observability primitives for
// vocalharmony: OpenTelemetry metrics and the Prometheus exporter bridge
// behind the /metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/bli0428/vocalharmony"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ChainLoadDuration tracks the time from a chain load request to its
	// player holding the shifted buffer. Use with attribute:
	//   attribute.String("offset", ...)
	ChainLoadDuration metric.Float64Histogram

	// CaptureDuration tracks the wall-clock length of microphone capture
	// sessions.
	CaptureDuration metric.Float64Histogram

	// --- Counters ---

	// PlayRequests counts play requests. Use with attribute:
	//   attribute.String("status", ...)
	PlayRequests metric.Int64Counter

	// ChainsCreated counts voice chains created.
	ChainsCreated metric.Int64Counter

	// ChainsDisposed counts voice chains disposed.
	ChainsDisposed metric.Int64Counter

	// RecordingsCaptured counts completed capture sessions.
	RecordingsCaptured metric.Int64Counter

	// --- Gauges ---

	// ActiveChains tracks the number of chains currently held by the
	// registry.
	ActiveChains metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Chain
// loads are decode-plus-shift bound and usually land well under a second;
// captures run for multiple seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ChainLoadDuration, err = m.Float64Histogram("vocalharmony.chain.load.duration",
		metric.WithDescription("Latency of loading a recording into a voice chain."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CaptureDuration, err = m.Float64Histogram("vocalharmony.capture.duration",
		metric.WithDescription("Wall-clock length of microphone capture sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.PlayRequests, err = m.Int64Counter("vocalharmony.play.requests",
		metric.WithDescription("Total play requests by status."),
	); err != nil {
		return nil, err
	}
	if met.ChainsCreated, err = m.Int64Counter("vocalharmony.chains.created",
		metric.WithDescription("Total voice chains created."),
	); err != nil {
		return nil, err
	}
	if met.ChainsDisposed, err = m.Int64Counter("vocalharmony.chains.disposed",
		metric.WithDescription("Total voice chains disposed."),
	); err != nil {
		return nil, err
	}
	if met.RecordingsCaptured, err = m.Int64Counter("vocalharmony.recordings.captured",
		metric.WithDescription("Total completed capture sessions."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveChains, err = m.Int64UpDownCounter("vocalharmony.active_chains",
		metric.WithDescription("Number of voice chains currently registered."),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordPlayRequest records a play request counter increment with the
// standard status attribute.
func (m *Metrics) RecordPlayRequest(ctx context.Context, status string) {
	m.PlayRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordChainLoad records a chain load latency sample tagged with the
// chain's offset.
func (m *Metrics) RecordChainLoad(ctx context.Context, offset string, seconds float64) {
	m.ChainLoadDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("offset", offset)),
	)
}
