package logger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "asanabot"

// StartSpan starts a span under whatever trace ctx already carries.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartMessageSpan starts the consumer span for a queue message. A valid
// traceID, as recorded by the webhook at ingest, becomes the remote parent so
// the sync shows up in the delivery's trace. Anything else, including
// backfill messages without one, starts a new root.
func StartMessageSpan(ctx context.Context, traceID, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
	}
	if id, err := trace.TraceIDFromHex(traceID); err == nil {
		parent := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    id,
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})
		ctx = trace.ContextWithRemoteSpanContext(ctx, parent)
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: parent}))
	}
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// EndSpan marks the span failed when err is non-nil, then ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
