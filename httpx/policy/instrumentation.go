package policy

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/LeonPucin/dash-core/httpx/observability"
)

// InstrumentationPolicy traces each logical request as one client span.
// Placed outermost, the span covers every attempt; the retry policy adds an
// http.retry event per extra attempt and End records the attempt count and
// the request id from the RequestState.
type InstrumentationPolicy struct {
	tracer *observability.Tracer
}

// NewInstrumentationPolicy traces with provider, or the global provider
// when nil.
func NewInstrumentationPolicy(provider trace.TracerProvider) *InstrumentationPolicy {
	return &InstrumentationPolicy{tracer: observability.NewTracer(provider)}
}

func (i *InstrumentationPolicy) Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error) {
	ctx, span := i.tracer.Start(ctx, req)

	resp, err := next(ctx, req)

	state := StateFrom(ctx)
	i.tracer.End(span, observability.Outcome{
		Response:  resp,
		Err:       err,
		Attempts:  state.Attempts(),
		RequestID: state.RequestID(),
	})
	return resp, err
}
