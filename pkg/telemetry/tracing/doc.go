// Package tracing sets up OpenTelemetry tracing for gathertrim.
//
// When telemetry.tracing.enabled is set, spans are exported over OTLP/gRPC
// to telemetry.tracing.endpoint. Each pipeline stage gets a span and the
// trimming engine adds one per rewritten file:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	walker := trim.NewWalker(walkerCfg, trim.WithTracer(tracer.Tracer()))
//
// The Bugzilla client forwards trace context through Transport.
package tracing
