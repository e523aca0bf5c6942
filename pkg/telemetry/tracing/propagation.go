package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Propagator returns the global text map propagator (W3C Trace Context and
// Baggage once New has run with tracing enabled).
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Inject writes the trace context of ctx into outgoing HTTP headers.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// Extract returns ctx extended with the trace context of incoming headers.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Transport injects trace context into every request it forwards.
type Transport struct {
	// Base is the wrapped transport; nil means http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	Inject(req.Context(), out.Header)
	return base.RoundTrip(out)
}

// HTTPMiddleware extracts trace context from incoming requests.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(Extract(r.Context(), r.Header)))
	})
}
