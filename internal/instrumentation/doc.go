// Package instrumentation wires OpenTelemetry metrics with a Prometheus
// exporter. The Provider owns the meter provider; Metrics is the typed
// recording surface handed to the rest of the application. A zero-value
// Metrics records nothing, so callers never need nil checks around an
// optional recorder they were given.
package instrumentation
