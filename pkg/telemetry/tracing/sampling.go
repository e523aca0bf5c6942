package tracing

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// createSampler maps a sample ratio to a sampler: 1 and above samples every
// trace, 0 and below none, anything between samples by trace ID. The
// result respects the parent span's decision.
func createSampler(ratio float64) sdktrace.Sampler {
	var base sdktrace.Sampler
	switch {
	case ratio >= 1:
		base = sdktrace.AlwaysSample()
	case ratio <= 0:
		base = sdktrace.NeverSample()
	default:
		base = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(base)
}
