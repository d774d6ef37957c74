// Package metrics defines the Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec
	EventsDecodedTotal     *prometheus.CounterVec

	// Outbound metrics
	SendAttemptsTotal   *prometheus.CounterVec
	SendDurationSeconds *prometheus.HistogramVec
	SendRetriesTotal    prometheus.Counter

	// Rate limiter metrics
	RateLimiterWaitSeconds prometheus.Histogram
	RateLimiterDropped     *prometheus.CounterVec

	// Credential metrics
	CredentialRefreshTotal *prometheus.CounterVec

	// Command metrics
	CommandsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgate_webhook_requests_total",
				Help: "Total webhook deliveries by outcome",
			},
			[]string{"status"}, // status: accepted, bad_signature, bad_payload
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatgate_webhook_duration_seconds",
				Help:    "Event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"event_type"},
		),

		EventsDecodedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgate_events_decoded_total",
				Help: "Total events decoded from webhook batches by type and status",
			},
			[]string{"event_type", "status"}, // status: ok, error
		),

		SendAttemptsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgate_send_attempts_total",
				Help: "Total outbound API calls by result",
			},
			[]string{"result"}, // result: success, transient, permanent, validation, rate_limited, exhausted
		),

		SendDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatgate_send_duration_seconds",
				Help:    "Outbound send duration in seconds including retries",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"result"},
		),

		SendRetriesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "chatgate_send_retries_total",
				Help: "Total retry attempts for transient send failures",
			},
		),

		RateLimiterWaitSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatgate_rate_limiter_wait_seconds",
				Help:    "Time spent waiting for an outbound rate-limit permit",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
			},
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgate_rate_limiter_dropped_total",
				Help: "Requests denied by a rate limiter by scope",
			},
			[]string{"scope"}, // scope: channel, user
		),

		CredentialRefreshTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgate_credential_refresh_total",
				Help: "Credential refresh operations by status",
			},
			[]string{"status"}, // status: success, error
		),

		CommandsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatgate_commands_total",
				Help: "Dispatched text commands by keyword",
			},
			[]string{"command"},
		),
	}

	return m
}

// RecordWebhook records a webhook delivery outcome.
func (m *Metrics) RecordWebhook(status string) {
	m.WebhookRequestsTotal.WithLabelValues(status).Inc()
}

// RecordEvent records a processed event with its duration.
func (m *Metrics) RecordEvent(eventType string, seconds float64) {
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(seconds)
}

// RecordDecoded records a decode result for one batch element.
func (m *Metrics) RecordDecoded(eventType, status string) {
	m.EventsDecodedTotal.WithLabelValues(eventType, status).Inc()
}

// RecordSend records the terminal result of an outbound send call.
func (m *Metrics) RecordSend(result string, seconds float64) {
	m.SendAttemptsTotal.WithLabelValues(result).Inc()
	m.SendDurationSeconds.WithLabelValues(result).Observe(seconds)
}

// RecordSendRetry counts one transient retry.
func (m *Metrics) RecordSendRetry() {
	m.SendRetriesTotal.Inc()
}

// RecordRateLimiterWait records the time spent acquiring a permit.
func (m *Metrics) RecordRateLimiterWait(seconds float64) {
	m.RateLimiterWaitSeconds.Observe(seconds)
}

// RecordRateLimiterDrop counts a denied acquisition for the given scope.
func (m *Metrics) RecordRateLimiterDrop(scope string) {
	m.RateLimiterDropped.WithLabelValues(scope).Inc()
}

// RecordCredentialRefresh records a refresh outcome.
func (m *Metrics) RecordCredentialRefresh(status string) {
	m.CredentialRefreshTotal.WithLabelValues(status).Inc()
}

// RecordCommand counts a dispatched command keyword.
func (m *Metrics) RecordCommand(command string) {
	m.CommandsTotal.WithLabelValues(command).Inc()
}
