// Package telemetry groups the observability packages of gathertrim.
//
//   - logging: slog setup with secret redaction and run context
//   - metrics: Prometheus collectors for trimming and pipeline stages
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: liveness and readiness probes for the scheduler
package telemetry
