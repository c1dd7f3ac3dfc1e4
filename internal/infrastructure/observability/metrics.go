package observability

import (
	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Payment metrics
	PaymentsTotal          *prometheus.CounterVec
	PaymentDuration        *prometheus.HistogramVec
	ActivePayments         prometheus.Gauge
	PaymentRetries         *prometheus.CounterVec
	PaymentErrors          *prometheus.CounterVec

	// Outbox metrics
	OutboxPending          prometheus.Gauge
	OutboxPublished        *prometheus.CounterVec
	OutboxExhausted        *prometheus.CounterVec

	// Webhook metrics
	WebhooksReceived       *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	// Worker metrics
	WorkerMessagesProcessed  *prometheus.CounterVec
	WorkerProcessingDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of payments by type and status",
			},
			[]string{"type", "status"},
		),
		PaymentDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payment_duration_seconds",
				Help:      "Payment processing duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"type", "status"},
		),
		ActivePayments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_payments",
				Help:      "Number of currently active payments",
			},
		),
		PaymentRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_retries_total",
				Help:      "Total number of payment retries",
			},
			[]string{"type"},
		),
		PaymentErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_errors_total",
				Help:      "Total number of payment errors",
			},
			[]string{"type", "error_type"},
		),
		OutboxPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "outbox_pending",
				Help:      "Number of unpublished outbox records observed on the last poll",
			},
		),
		OutboxPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_published_total",
				Help:      "Total number of outbox records published, by event type and result",
			},
			[]string{"event_type", "result"},
		),
		OutboxExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_exhausted_total",
				Help:      "Total number of outbox records that exceeded the retry budget",
			},
			[]string{"event_type"},
		),
		WebhooksReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_received_total",
				Help:      "Total number of provider webhook callbacks received, by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
		WorkerMessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_messages_processed_total",
				Help:      "Total number of outbox records handed to the bus producer",
			},
			[]string{"topic", "status"},
		),
		WorkerProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_processing_duration_seconds",
				Help:      "Outbox publish tick duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"topic"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.PaymentsTotal,
		m.PaymentDuration,
		m.ActivePayments,
		m.PaymentRetries,
		m.PaymentErrors,
		m.OutboxPending,
		m.OutboxPublished,
		m.OutboxExhausted,
		m.WebhooksReceived,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
		m.WorkerMessagesProcessed,
		m.WorkerProcessingDuration,
	)

	return m
}

// RecordPaymentTransition increments PaymentsTotal for a payment's provider
// and the status it just moved into.
func (m *Metrics) RecordPaymentTransition(provider, status string) {
	m.PaymentsTotal.WithLabelValues(provider, status).Inc()
}

// ObservePaymentDuration records the time from intent creation to a
// terminal transition, labeled the same way as PaymentsTotal.
func (m *Metrics) ObservePaymentDuration(provider, status string, seconds float64) {
	m.PaymentDuration.WithLabelValues(provider, status).Observe(seconds)
}

// SetOutboxPending reports the number of unpublished rows seen on the
// publisher's last poll.
func (m *Metrics) SetOutboxPending(n int) {
	m.OutboxPending.Set(float64(n))
}

// RecordOutboxPublish increments OutboxPublished and the legacy
// worker-messages counter for one outbox record's publish attempt.
func (m *Metrics) RecordOutboxPublish(eventType outbox.EventType, result string) {
	m.OutboxPublished.WithLabelValues(string(eventType), result).Inc()
	m.WorkerMessagesProcessed.WithLabelValues(string(eventType), result).Inc()
}

// ObserveOutboxTick records the wall-clock duration of one publisher
// Tick, across every topic it touched.
func (m *Metrics) ObserveOutboxTick(seconds float64) {
	m.WorkerProcessingDuration.WithLabelValues("outbox").Observe(seconds)
}

// RecordOutboxExhausted increments OutboxExhausted for the rows of a
// given event type found to have exceeded the retry budget.
func (m *Metrics) RecordOutboxExhausted(eventType outbox.EventType, count int) {
	m.OutboxExhausted.WithLabelValues(string(eventType)).Add(float64(count))
}
