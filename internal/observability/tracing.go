package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("loctrack")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartFlushSpan starts a span for one snapshot write.
	StartFlushSpan(ctx context.Context, key string, samples int) (context.Context, trace.Span)

	// StartLoadSpan starts a span for reading the snapshot at startup.
	StartLoadSpan(ctx context.Context, key string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartFlushSpan starts a span for a snapshot write.
func (m *otelSpanManager) StartFlushSpan(ctx context.Context, key string, samples int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "loctrack.snapshot.flush",
		trace.WithAttributes(
			attribute.String("blob.key", key),
			attribute.Int("snapshot.samples", samples),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartLoadSpan starts a span for a snapshot load.
func (m *otelSpanManager) StartLoadSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "loctrack.snapshot.load",
		trace.WithAttributes(attribute.String("blob.key", key)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
