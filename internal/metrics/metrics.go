// Package metrics exposes Prometheus instrumentation for ingestion and
// the dashboard API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	SnapshotRows     prometheus.Gauge
	SnapshotAgeHours prometheus.GaugeFunc

	ReloadTotal *prometheus.CounterVec
	FetchTotal  *prometheus.CounterVec

	FetchDuration     prometheus.Histogram
	DashboardRequests *prometheus.CounterVec
	DashboardLatency  prometheus.Histogram
}

// New creates and registers all collectors on reg. A nil reg falls back
// to the default registerer. ageHours feeds the snapshot age gauge and
// may be nil.
func New(reg prometheus.Registerer, ageHours func() float64) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	if ageHours == nil {
		ageHours = func() float64 { return 0 }
	}

	return &Metrics{
		SnapshotRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "domainperf",
			Name:      "snapshot_rows",
			Help:      "Row count of the currently served table snapshot",
		}),
		SnapshotAgeHours: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "domainperf",
			Name:      "snapshot_age_hours",
			Help:      "Hours since the current snapshot was loaded",
		}, ageHours),
		ReloadTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "domainperf",
			Name:      "reload_total",
			Help:      "Snapshot reloads by outcome",
		}, []string{"status"}),
		FetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "domainperf",
			Name:      "fetch_total",
			Help:      "Upstream data fetches by source and outcome",
		}, []string{"source", "status"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "domainperf",
			Name:      "fetch_duration_seconds",
			Help:      "End-to-end duration of upstream fetches",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		DashboardRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "domainperf",
			Name:      "dashboard_requests_total",
			Help:      "Dashboard data requests by metric type",
		}, []string{"metric"}),
		DashboardLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "domainperf",
			Name:      "dashboard_latency_seconds",
			Help:      "Dashboard data computation latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}
