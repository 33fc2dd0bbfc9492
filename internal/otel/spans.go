package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for textlens spans.
var (
	AttrRunID      = attribute.Key("textlens.run.id")
	AttrSessionID  = attribute.Key("textlens.session.id")
	AttrMethods    = attribute.Key("textlens.analysis.methods")
	AttrTokenCount = attribute.Key("textlens.analysis.tokens")
	AttrOutcome    = attribute.Key("textlens.analysis.outcome")
	AttrChartKind  = attribute.Key("textlens.chart.kind")
	AttrRoute      = attribute.Key("textlens.http.route")
)

// StartSpan starts an internal span with common attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartServerSpan starts a span for an inbound gateway request.
func StartServerSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}
