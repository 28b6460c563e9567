package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors of the service
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds prometheus.ObserverVec
	MFAOperationsTotal         *prometheus.CounterVec
}

// New creates the collectors curried with the service label and registers
// them on reg
func New(reg prometheus.Registerer, serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mfa_operations_total",
			Help: "Total number of MFA actions by outcome.",
		},
		[]string{"service", "action", "outcome"},
	)

	reg.MustRegister(httpRequests, httpDuration, operations)

	return &Metrics{
		HTTPRequestsTotal:          httpRequests.MustCurryWith(labels),
		HTTPRequestDurationSeconds: httpDuration.MustCurryWith(labels),
		MFAOperationsTotal:         operations.MustCurryWith(labels),
	}
}

// RecordOperation implements domain.OperationRecorder
func (m *Metrics) RecordOperation(action, outcome string) {
	m.MFAOperationsTotal.WithLabelValues(action, outcome).Inc()
}
