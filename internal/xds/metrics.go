package xds

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters and gauges for the ADS server over Prometheus.
type Metrics struct {
	discoveryRequests  *prometheus.CounterVec
	discoveryResponses *prometheus.CounterVec
	nacks              *prometheus.CounterVec
	activeStreams      prometheus.Gauge
	breakerOpenTotal   prometheus.Counter
}

const (
	DiscoveryRequestsTotal  = "envoyage_xds_discovery_requests_total"
	DiscoveryResponsesTotal = "envoyage_xds_discovery_responses_total"
	NacksTotal              = "envoyage_xds_nacks_total"
	ActiveStreamsGauge      = "envoyage_xds_active_streams"
	BreakerOpenTotal        = "envoyage_xds_breaker_open_total"
)

// NewMetrics constructs and registers the ADS server's metrics with registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		discoveryRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: DiscoveryRequestsTotal,
				Help: "Total DiscoveryRequest messages received, labeled by type_url.",
			},
			[]string{"type_url"},
		),
		discoveryResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: DiscoveryResponsesTotal,
				Help: "Total DiscoveryResponse messages sent, labeled by type_url.",
			},
			[]string{"type_url"},
		),
		nacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: NacksTotal,
				Help: "Total NACKs received from clients, labeled by type_url.",
			},
			[]string{"type_url"},
		),
		activeStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: ActiveStreamsGauge,
				Help: "Number of currently open ADS streams.",
			},
		),
		breakerOpenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: BreakerOpenTotal,
				Help: "Total requests refused because the circuit breaker was open.",
			},
		),
	}
	registry.MustRegister(
		m.discoveryRequests,
		m.discoveryResponses,
		m.nacks,
		m.activeStreams,
		m.breakerOpenTotal,
	)
	return m
}

// Handler returns an http.Handler serving registry's metrics.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// The observe* helpers are nil-receiver safe so the stream handler can
// instrument unconditionally regardless of whether metrics were wired.

func (m *Metrics) observeRequest(typeURL string) {
	if m == nil {
		return
	}
	m.discoveryRequests.WithLabelValues(typeURL).Inc()
}

func (m *Metrics) observeResponse(typeURL string) {
	if m == nil {
		return
	}
	m.discoveryResponses.WithLabelValues(typeURL).Inc()
}

func (m *Metrics) observeNack(typeURL string) {
	if m == nil {
		return
	}
	m.nacks.WithLabelValues(typeURL).Inc()
}

func (m *Metrics) observeBreakerOpen() {
	if m == nil {
		return
	}
	m.breakerOpenTotal.Inc()
}

func (m *Metrics) streamOpened() {
	if m == nil {
		return
	}
	m.activeStreams.Inc()
}

func (m *Metrics) streamClosed() {
	if m == nil {
		return
	}
	m.activeStreams.Dec()
}
