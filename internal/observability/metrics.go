package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sightings_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the pipeline stages.
type Metrics struct {
	RowsRead      *prometheus.CounterVec   // labels: stage
	RowsWritten   *prometheus.CounterVec   // labels: stage
	RowsDropped   *prometheus.CounterVec   // labels: stage, reason
	StageDuration *prometheus.HistogramVec // labels: stage
	StageFailures *prometheus.CounterVec   // labels: stage

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={found,not_found,error}
	GeocodeCache       *prometheus.CounterVec // labels: layer={memory,sqlite}, result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	// Spatial assignment metrics.
	Assignments     *prometheus.CounterVec // labels: method={within,nearest}
	PolygonOverlaps prometheus.Counter
	NearestDistance prometheus.Histogram

	RedistributedCells *prometheus.CounterVec // labels: outcome={kept,simulated}
	EnvMissing         *prometheus.GaugeVec   // labels: stage, variable
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows read from stage inputs.",
		}, []string{"stage"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to stage outputs.",
		}, []string{"stage"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows discarded by a stage, by reason.",
		}, []string{"stage", "reason"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a complete stage run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Stage runs that returned an error.",
		}, []string{"stage"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Nominatim API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spatial_assignments_total",
			Help:      "Sightings assigned to an administrative unit, by method.",
		}, []string{"method"}),
		PolygonOverlaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spatial_overlaps_total",
			Help:      "Sightings that fell inside more than one unit.",
		}),
		NearestDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spatial_nearest_distance_meters",
			Help:      "Distance to the nearest unit for sightings outside every unit.",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		RedistributedCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redistributed_cells_total",
			Help:      "Grid cells visited by redistribution, by outcome.",
		}, []string{"outcome"}),
		EnvMissing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "env_missing_values",
			Help:      "Missing environmental values per variable after a stage.",
		}, []string{"stage", "variable"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsRead,
		m.RowsWritten,
		m.RowsDropped,
		m.StageDuration,
		m.StageFailures,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.Assignments,
		m.PolygonOverlaps,
		m.NearestDistance,
		m.RedistributedCells,
		m.EnvMissing,
	}
}
