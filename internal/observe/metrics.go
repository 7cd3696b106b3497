// Package observe provides application-wide observability primitives for
// Voxscribe: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
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

// meterName is the instrumentation scope name used for all Voxscribe metrics.
const meterName = "github.com/MrWong99/voxscribe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// PreprocessDuration tracks audio validation and conditioning latency.
	PreprocessDuration metric.Float64Histogram

	// TranscribeDuration tracks speech-to-text transcription latency.
	TranscribeDuration metric.Float64Histogram

	// CleanDuration tracks text cleanup (dedup and repetition cap) latency.
	CleanDuration metric.Float64Histogram

	// GrammarDuration tracks grammar-correction latency.
	GrammarDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end pipeline latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// PipelineRequests counts pipeline runs. Use with attributes:
	//   attribute.String("strategy", ...), attribute.String("status", ...)
	PipelineRequests metric.Int64Counter

	// StageDegradations counts stages that fell back to a degraded result.
	// Use with attribute: attribute.String("stage", ...)
	StageDegradations metric.Int64Counter

	// StrategyFallbacks counts runs where the enhanced strategy handed the
	// request over to the basic strategy.
	StrategyFallbacks metric.Int64Counter

	// --- Error counters ---

	// EngineErrors counts transcription engine errors. Use with attribute:
	//   attribute.String("engine", ...)
	EngineErrors metric.Int64Counter

	// --- Gauges ---

	// InFlightRequests tracks the number of HTTP requests being served.
	InFlightRequests metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// transcription workloads, where a single run can take tens of seconds.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.PreprocessDuration, err = m.Float64Histogram("voxscribe.preprocess.duration",
		metric.WithDescription("Latency of audio validation and conditioning."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("voxscribe.transcribe.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CleanDuration, err = m.Float64Histogram("voxscribe.clean.duration",
		metric.WithDescription("Latency of transcript text cleanup."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GrammarDuration, err = m.Float64Histogram("voxscribe.grammar.duration",
		metric.WithDescription("Latency of grammar correction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("voxscribe.pipeline.duration",
		metric.WithDescription("End-to-end pipeline latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.PipelineRequests, err = m.Int64Counter("voxscribe.pipeline.requests",
		metric.WithDescription("Total pipeline runs by strategy and status."),
	); err != nil {
		return nil, err
	}
	if met.StageDegradations, err = m.Int64Counter("voxscribe.stage.degradations",
		metric.WithDescription("Total stages that produced a degraded result, by stage."),
	); err != nil {
		return nil, err
	}
	if met.StrategyFallbacks, err = m.Int64Counter("voxscribe.strategy.fallbacks",
		metric.WithDescription("Total runs handed from the enhanced to the basic strategy."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.EngineErrors, err = m.Int64Counter("voxscribe.engine.errors",
		metric.WithDescription("Total transcription engine errors by engine."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InFlightRequests, err = m.Int64UpDownCounter("voxscribe.http.requests.in_flight",
		metric.WithDescription("Number of HTTP requests currently being served."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxscribe.http.request.duration",
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

// RecordPipelineRequest is a convenience method that records a pipeline run
// counter increment with the standard attribute set.
func (m *Metrics) RecordPipelineRequest(ctx context.Context, strategy, status string) {
	m.PipelineRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("strategy", strategy),
			attribute.String("status", status),
		),
	)
}

// RecordStageDegradation is a convenience method that records a degraded
// stage counter increment.
func (m *Metrics) RecordStageDegradation(ctx context.Context, stage string) {
	m.StageDegradations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordStrategyFallback is a convenience method that records an enhanced →
// basic strategy handover.
func (m *Metrics) RecordStrategyFallback(ctx context.Context) {
	m.StrategyFallbacks.Add(ctx, 1)
}

// RecordEngineError is a convenience method that records a transcription
// engine error counter increment.
func (m *Metrics) RecordEngineError(ctx context.Context, engine string) {
	m.EngineErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("engine", engine)),
	)
}
