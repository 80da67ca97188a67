package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for GigPost
type Metrics struct {
	// Campaign dispatch counters
	EmailsSentTotal         prometheus.Counter
	EmailsFailedTotal       prometheus.Counter
	CampaignsCompletedTotal *prometheus.CounterVec

	// Ticketing counters
	TicketsSoldTotal prometheus.Counter
	PaymentsTotal    *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EmailsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gigpost_emails_sent_total",
				Help: "Total number of campaign emails handed to the relay",
			},
		),
		EmailsFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gigpost_emails_failed_total",
				Help: "Total number of campaign emails that failed delivery",
			},
		),
		CampaignsCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigpost_campaigns_completed_total",
				Help: "Total number of finished campaign dispatches",
			},
			[]string{"status"},
		),

		TicketsSoldTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gigpost_tickets_sold_total",
				Help: "Total number of tickets sold",
			},
		),
		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigpost_payments_total",
				Help: "Total number of payment intents by final status",
			},
			[]string{"status"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigpost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gigpost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigpost_http_errors_total",
				Help: "Total number of HTTP error responses",
			},
			[]string{"error_type"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.EmailsSentTotal,
		m.EmailsFailedTotal,
		m.CampaignsCompletedTotal,
		m.TicketsSoldTotal,
		m.PaymentsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncEmailsSent increments the delivered email counter
func IncEmailsSent() {
	m := Global()
	if m != nil {
		m.EmailsSentTotal.Inc()
	}
}

// IncEmailsFailed increments the failed email counter
func IncEmailsFailed() {
	m := Global()
	if m != nil {
		m.EmailsFailedTotal.Inc()
	}
}

// IncCampaignsCompleted increments the finished campaign counter
func IncCampaignsCompleted(status string) {
	m := Global()
	if m != nil {
		m.CampaignsCompletedTotal.WithLabelValues(status).Inc()
	}
}

// IncTicketsSold increments the sold ticket counter
func IncTicketsSold() {
	m := Global()
	if m != nil {
		m.TicketsSoldTotal.Inc()
	}
}

// IncPayments increments the payment counter for a final status
func IncPayments(status string) {
	m := Global()
	if m != nil {
		m.PaymentsTotal.WithLabelValues(status).Inc()
	}
}

// IncHTTPErrors increments the HTTP error counter
func IncHTTPErrors(errorType string) {
	m := Global()
	if m != nil {
		m.HTTPErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
