// Package observe provides application-wide observability primitives for the
// front desk server: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
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

// meterName is the instrumentation scope name used for all front desk metrics.
const meterName = "github.com/medvox/frontdesk"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// CaptureDuration tracks the length of one listening session, from
	// start-recording to stop-recording.
	CaptureDuration metric.Float64Histogram

	// ExtractionDuration tracks how long one extraction pass over a
	// transcript takes.
	ExtractionDuration metric.Float64Histogram

	// --- Counters ---

	// Extractions counts extraction attempts. Use with attribute:
	//   attribute.String("outcome", "succeeded"|"failed"|"empty")
	Extractions metric.Int64Counter

	// Confirmations counts appointments persisted at confirm time. Use with
	// attribute: attribute.String("entry", "voice"|"manual")
	Confirmations metric.Int64Counter

	// Cancellations counts bookings abandoned from review or edit.
	Cancellations metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts STT provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live capture sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Extraction
// is sub-millisecond, capture sessions run tens of seconds; the range covers
// both.
var latencyBuckets = []float64{
	0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("frontdesk.capture.duration",
		metric.WithDescription("Length of one listening session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractionDuration, err = m.Float64Histogram("frontdesk.extraction.duration",
		metric.WithDescription("Latency of one extraction pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Extractions, err = m.Int64Counter("frontdesk.extractions",
		metric.WithDescription("Total extraction attempts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Confirmations, err = m.Int64Counter("frontdesk.confirmations",
		metric.WithDescription("Total appointments persisted by entry path."),
	); err != nil {
		return nil, err
	}
	if met.Cancellations, err = m.Int64Counter("frontdesk.cancellations",
		metric.WithDescription("Total bookings abandoned from review or edit."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("frontdesk.provider.errors",
		metric.WithDescription("Total STT provider errors by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("frontdesk.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("frontdesk.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordExtraction is a convenience method that records an extraction attempt
// with its outcome.
func (m *Metrics) RecordExtraction(ctx context.Context, outcome string) {
	m.Extractions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordConfirmation is a convenience method that records a persisted
// appointment by entry path.
func (m *Metrics) RecordConfirmation(ctx context.Context, entry string) {
	m.Confirmations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("entry", entry)),
	)
}

// RecordProviderError is a convenience method that records an STT provider
// error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
