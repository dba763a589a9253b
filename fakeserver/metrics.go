package fakeserver

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles Prometheus collectors for the fake API server.
type Metrics struct {
	Registry      *prometheus.Registry
	RequestsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbloom_fakeserver_requests_total",
			Help: "Total HTTP requests served by the fake API.",
		},
		[]string{"method"},
	)

	registry.MustRegister(requests)

	return &Metrics{
		Registry:      registry,
		RequestsTotal: requests,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(method string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method).Inc()
}
