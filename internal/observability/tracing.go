// Package observability wraps OpenTelemetry tracing and metrics for
// pipeline runs.
//
// Spans and measurements go to the global providers; Setup installs the
// SDK ones the binary reads back.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "repotutor"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartRunSpan starts a span covering one flow run.
func StartRunSpan(ctx context.Context, flowName, runID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "repotutor.flow",
		trace.WithAttributes(
			attribute.String("flow.name", flowName),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartNodeSpan starts a span for one node execution.
func StartNodeSpan(ctx context.Context, nodeName string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "repotutor.node."+nodeName,
		trace.WithAttributes(attribute.String("node.name", nodeName)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartLLMSpan starts a span around a single gateway call.
func StartLLMSpan(ctx context.Context, model string, promptChars int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "repotutor.llm.call",
		trace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Int("llm.prompt_chars", promptChars),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
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

// AddSpanEvent adds an event to the span in ctx, if it is recording.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
