package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records loctrack metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSave records one attempt to persist a position.
	// trigger is "eager", "update", "timer" or "manual".
	RecordSave(ctx context.Context, trigger string, err error)

	// RecordFlush records one snapshot write with its latency and size.
	RecordFlush(ctx context.Context, duration time.Duration, sizeBytes int64, err error)

	// RecordTransition records a tracking status change.
	RecordTransition(ctx context.Context, from, to string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	saves        metric.Int64Counter
	saveErrors   metric.Int64Counter
	flushes      metric.Int64Counter
	flushErrors  metric.Int64Counter
	flushLatency metric.Float64Histogram
	snapshotSize metric.Int64Histogram
	transitions  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the default OTel metrics instance.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance from the global meter.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("loctrack")

	saves, err := meter.Int64Counter("loctrack.sample.saves",
		metric.WithDescription("Number of position save attempts"),
	)
	if err != nil {
		return nil, err
	}

	saveErrors, err := meter.Int64Counter("loctrack.sample.save_errors",
		metric.WithDescription("Number of failed position saves"),
	)
	if err != nil {
		return nil, err
	}

	flushes, err := meter.Int64Counter("loctrack.snapshot.flushes",
		metric.WithDescription("Number of snapshot writes"),
	)
	if err != nil {
		return nil, err
	}

	flushErrors, err := meter.Int64Counter("loctrack.snapshot.flush_errors",
		metric.WithDescription("Number of failed snapshot writes"),
	)
	if err != nil {
		return nil, err
	}

	flushLatency, err := meter.Float64Histogram("loctrack.snapshot.flush_latency_ms",
		metric.WithDescription("Snapshot write latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("loctrack.snapshot.size_bytes",
		metric.WithDescription("Encoded snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("loctrack.tracking.transitions",
		metric.WithDescription("Number of tracking status transitions"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		saves:        saves,
		saveErrors:   saveErrors,
		flushes:      flushes,
		flushErrors:  flushErrors,
		flushLatency: flushLatency,
		snapshotSize: snapshotSize,
		transitions:  transitions,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSave records a save attempt.
func (m *otelMetrics) RecordSave(ctx context.Context, trigger string, err error) {
	attrs := metric.WithAttributes(attribute.String("trigger", trigger))
	m.saves.Add(ctx, 1, attrs)
	if err != nil {
		m.saveErrors.Add(ctx, 1, attrs)
	}
}

// RecordFlush records a snapshot write.
func (m *otelMetrics) RecordFlush(ctx context.Context, duration time.Duration, sizeBytes int64, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.flushes.Add(ctx, 1, attrs)
	m.flushLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.flushErrors.Add(ctx, 1)
		return
	}
	m.snapshotSize.Record(ctx, sizeBytes)
}

// RecordTransition records a status change.
func (m *otelMetrics) RecordTransition(ctx context.Context, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
