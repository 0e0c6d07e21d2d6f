package store

import "github.com/prometheus/client_golang/prometheus"

// RegisterMetrics exposes each collection's capacity utilization on
// registry as a gauge, keyed by collection kind. Each gauge is a collector
// function that reads st.CapacityInfo at scrape time rather than a value
// updated on every mutation, so admitting a record never needs to touch a
// metrics path.
func RegisterMetrics(registry *prometheus.Registry, st *Store) {
	for _, kind := range []Kind{KindCluster, KindRoute, KindHTTPFilter} {
		kind := kind
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "envoyage_store_collection_size",
				Help:        "Current record count in a store collection.",
				ConstLabels: prometheus.Labels{"kind": string(kind)},
			},
			func() float64 { return float64(st.CapacityInfo(kind).Current) },
		))
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "envoyage_store_capacity_utilization",
				Help:        "Fraction of a collection's configured capacity currently in use.",
				ConstLabels: prometheus.Labels{"kind": string(kind)},
			},
			func() float64 { return st.CapacityInfo(kind).Utilization },
		))
	}
}
