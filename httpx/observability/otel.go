package observability

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/LeonPucin/dash-core/httpx"

// Span attribute keys set by Tracer.
const (
	AttrAttempts   = attribute.Key("http.attempts")
	AttrRetryCount = attribute.Key("http.retry_count")
	AttrRequestID  = attribute.Key("http.request_id")
	AttrErrorType  = attribute.Key("error.type")
)

// Tracer opens one client span per logical request. Attempts made inside
// it show up as span events, never as child spans.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracer uses provider, or the global tracer provider when nil.
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer:     provider.Tracer(instrumentationName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// Start opens the span and injects its context into the request headers.
// Credentials in the URL are redacted.
func (t *Tracer) Start(ctx context.Context, req *http.Request) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.Redacted()),
			attribute.String("http.host", req.URL.Host),
			attribute.String("http.target", req.URL.Path),
		),
	)
	t.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	return ctx, span
}

// Outcome is what the chain below the span reported.
type Outcome struct {
	Response  *http.Response
	Err       error
	Attempts  int
	RequestID string
}

// End records o on span and ends it. Any error, or a status of 400 and
// above, marks the span as failed.
func (t *Tracer) End(span trace.Span, o Outcome) {
	if o.Attempts > 0 {
		span.SetAttributes(AttrAttempts.Int(o.Attempts))
	}
	if o.Attempts > 1 {
		span.SetAttributes(AttrRetryCount.Int(o.Attempts - 1))
	}
	if o.RequestID != "" {
		span.SetAttributes(AttrRequestID.String(o.RequestID))
	}

	switch {
	case o.Err != nil:
		span.RecordError(o.Err)
		span.SetAttributes(AttrErrorType.String(ErrorToReason(o.Err)))
		span.SetStatus(codes.Error, o.Err.Error())
	case o.Response != nil:
		span.SetAttributes(attribute.Int("http.status_code", o.Response.StatusCode))
		if o.Response.StatusCode >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", o.Response.StatusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	span.End()
}

// AddPolicyEvent records a policy action, such as a retry or a rate limit
// wait, on the span active in ctx. It is a no-op without a recording span.
func AddPolicyEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
