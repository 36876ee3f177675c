package refdata

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	tableParcels  = "parcels"
	tableMachines = "machines"
	tableProducts = "products"
)

var (
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrogest",
			Subsystem: "refdata",
			Name:      "fetch_total",
			Help:      "Reference data fetches by table and outcome.",
		},
		[]string{"table", "outcome"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agrogest",
			Subsystem: "refdata",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of reference data fetches.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table"},
	)
)

// Collectors returns the gateway metrics for registration with a prometheus registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{fetchTotal, fetchDuration}
}

func observeFetch(table, outcome string, seconds float64) {
	fetchTotal.WithLabelValues(table, outcome).Inc()
	fetchDuration.WithLabelValues(table).Observe(seconds)
}
