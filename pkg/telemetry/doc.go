// Package telemetry provides the observability layer: a zerolog-backed
// structured logger with field helpers, Prometheus metrics for runs,
// component installs, and probe attempts, and OpenTelemetry tracing with
// a stdout span exporter.
package telemetry
