package breaker

import "github.com/prometheus/client_golang/prometheus"

// RegisterMetrics exposes b's state and lifetime trip count on registry.
// Both are collector functions, not stored gauges/counters: they read b's
// state at scrape time, the same GaugeFunc/CounterFunc pattern
// projectcontour-contour uses for its own breaker-adjacent health gauges.
func RegisterMetrics(registry *prometheus.Registry, b *Breaker) {
	registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "envoyage_breaker_open",
				Help: "1 if the circuit breaker is currently open, 0 otherwise.",
			},
			func() float64 {
				if b.IsOpen() {
					return 1
				}
				return 0
			},
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "envoyage_breaker_trips_total",
				Help: "Total number of times the circuit breaker has opened.",
			},
			func() float64 { return float64(b.Trips()) },
		),
	)
}
