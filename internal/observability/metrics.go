package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "beacon"

// Metrics holds the Prometheus counters, histograms, and gauges for the outage service.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Snapshot loading, labelled by view={dashboard,calendar,map}.
	ViewLoads        *prometheus.CounterVec   // labels: view, outcome={loaded,errored,stale}
	ViewLoadDuration *prometheus.HistogramVec // labels: view
	SnapshotRecords  *prometheus.GaugeVec     // labels: view

	// Change feed.
	ChangeEvents         *prometheus.CounterVec // labels: view
	SubscriptionFailures *prometheus.CounterVec // labels: view
	SubscriptionsActive  prometheus.Gauge
	StreamClients        prometheus.Gauge

	// Locality resolution.
	LocalityResolutions *prometheus.CounterVec // labels: outcome
	LocalityCache       *prometheus.CounterVec // labels: tier={memory,redis}, result={hit,miss,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method=forward, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method=forward, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method=forward
	GeocodeEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the snapshot pipeline is active, 0 when shut down.",
		}),
		ViewLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_loads_total",
			Help:      "Snapshot loads by view and outcome.",
		}, []string{"view", "outcome"}),
		ViewLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "view_load_duration_seconds",
			Help:      "Duration of a fetch-and-snapshot cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"view"}),
		SnapshotRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records held in the current snapshot of each view.",
		}, []string{"view"}),
		ChangeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Change notifications received per view subscription.",
		}, []string{"view"}),
		SubscriptionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_failures_total",
			Help:      "Change feed subscriptions that errored or timed out.",
		}, []string{"view"}),
		SubscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Change feed subscriptions currently held.",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected server-sent-event clients.",
		}),
		LocalityResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locality_resolutions_total",
			Help:      "Viewer locality resolutions by outcome.",
		}, []string{"outcome"}),
		LocalityCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locality_cache_total",
			Help:      "Locality name cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.ViewLoads,
		m.ViewLoadDuration,
		m.SnapshotRecords,
		m.ChangeEvents,
		m.SubscriptionFailures,
		m.SubscriptionsActive,
		m.StreamClients,
		m.LocalityResolutions,
		m.LocalityCache,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
