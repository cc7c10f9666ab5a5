// Package tracing wraps requests and actor calls into OpenTelemetry spans. The tracer
// is resolved from the global provider, so nothing is exported until the embedding
// application installs one via otel.SetTracerProvider.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "github.com/indigo-web/miniserve"

type Tracer struct {
	tracer trace.Tracer
}

// New resolves the tracer from the given provider, falling back to the global one
// when nil.
func New(provider trace.TracerProvider) Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return Tracer{tracer: provider.Tracer(TracerName)}
}

// Request starts a server span named after the method and the path.
func (t Tracer) Request(ctx context.Context, method, path, connID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.String("miniserve.conn_id", connID),
		),
	)
}

// Call starts an internal span covering a single actor call.
func (t Tracer) Call(ctx context.Context, seq uint64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "actor.call",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64("miniserve.actor.seq", int64(seq))),
	)
}

// Finish records the status code and marks server-side failures as errors.
func Finish(span trace.Span, code uint16) {
	span.SetAttributes(attribute.Int("http.response.status_code", int(code)))
	if code >= 500 {
		span.SetStatus(codes.Error, "server error")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// Cancelled marks a span whose work was abandoned.
func Cancelled(span trace.Span) {
	span.AddEvent("cancelled")
	span.SetStatus(codes.Error, "cancelled")
}
