package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod  = "method"
	attrPath    = "path"
	attrStatus  = "status"
	attrOutcome = "outcome"
)

// Relevance classification outcomes.
const (
	OutcomeRelevant   = "relevant"
	OutcomeIrrelevant = "irrelevant"
	OutcomeFailed     = "failed"
)

// Metrics provides methods for recording observability metrics. The zero
// value is a no-op recorder.
type Metrics struct {
	meter metric.Meter

	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	completionsTotal      metric.Int64Counter
	completionDuration    metric.Float64Histogram
	rateLimitWaitDuration metric.Float64Histogram

	classificationsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.completionsTotal, err = meter.Int64Counter(
		"llm_completions_total",
		metric.WithDescription("Total number of model completion requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_completions_total counter: %w", err)
	}

	m.completionDuration, err = meter.Float64Histogram(
		"llm_completion_duration_seconds",
		metric.WithDescription("Model completion duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_completion_duration_seconds histogram: %w", err)
	}

	m.rateLimitWaitDuration, err = meter.Float64Histogram(
		"llm_rate_limit_wait_seconds",
		metric.WithDescription("Time spent waiting for the model rate limiter"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_rate_limit_wait_seconds histogram: %w", err)
	}

	m.classificationsTotal, err = meter.Int64Counter(
		"lookup_classifications_total",
		metric.WithDescription("Total number of email relevance classifications by outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup_classifications_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, route pattern,
// status code and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCompletion records one model completion request.
// Status should be "success" or "error".
func (m *Metrics) RecordCompletion(ctx context.Context, status string, duration time.Duration) {
	if m.completionsTotal == nil || m.completionDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.completionsTotal.Add(ctx, 1, attrs)
	m.completionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRateLimitWait records how long a completion request waited for the
// rate limiter.
func (m *Metrics) RecordRateLimitWait(ctx context.Context, wait time.Duration) {
	if m.rateLimitWaitDuration == nil {
		return
	}
	m.rateLimitWaitDuration.Record(ctx, wait.Seconds())
}

// RecordClassification counts one relevance classification outcome.
func (m *Metrics) RecordClassification(ctx context.Context, outcome string) {
	if m.classificationsTotal == nil {
		return
	}
	m.classificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RegisterActiveCallsGauge registers a gauge that observes the number of
// live call sessions through fn.
func (m *Metrics) RegisterActiveCallsGauge(fn func() int64) error {
	if m.meter == nil {
		return nil
	}

	_, err := m.meter.Int64ObservableGauge(
		"active_call_sessions",
		metric.WithDescription("Number of call sessions currently tracked"),
		metric.WithUnit("{session}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(fn())
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create active_call_sessions gauge: %w", err)
	}
	return nil
}
