// Package server exposes the HTTP API of the calling assistant: the
// Google OAuth web flow, the email lookup and scheduling preparation
// endpoints, call initiation, the vendor webhook, and the status and
// summary polling endpoints. Prometheus metrics are served by a separate
// MetricsServer on a dedicated port.
package server
