package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// recharge engine.
type Metrics struct {
	RefreshCycles prometheus.Counter
	CycleDuration prometheus.Histogram
	EngineReady   prometheus.Gauge

	// Ground-truth pipeline metrics.
	StationsResolved prometheus.Gauge
	ActiveReadings   prometheus.Gauge
	FeedErrors       *prometheus.CounterVec // labels: feed

	// Research pipeline metrics.
	StationsLinked   prometheus.Gauge
	RainCoverage     prometheus.Gauge // fraction of linked gauges with window data
	GaugeFetchErrors prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RefreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recharge_engine",
			Name:      "refresh_cycles_total",
			Help:      "Total completed refresh cycles.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recharge_engine",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete ground-truth plus research refresh cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		EngineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recharge_engine",
			Name:      "ready",
			Help:      "1 once at least one refresh cycle has produced data.",
		}),
		StationsResolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recharge_engine",
			Name:      "stations_resolved",
			Help:      "Groundwater stations surviving identity resolution.",
		}),
		ActiveReadings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recharge_engine",
			Name:      "active_readings",
			Help:      "Stations with a live reading in the latest cycle.",
		}),
		FeedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recharge_engine",
			Name:      "feed_errors_total",
			Help:      "Catalog or reading feed fetch failures by feed name.",
		}, []string{"feed"}),
		StationsLinked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recharge_engine",
			Name:      "stations_linked",
			Help:      "Groundwater stations linked to a rainfall gauge within radius.",
		}),
		RainCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recharge_engine",
			Name:      "rain_coverage_ratio",
			Help:      "Fraction of linked gauges that returned window data.",
		}),
		GaugeFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recharge_engine",
			Name:      "gauge_fetch_errors_total",
			Help:      "Per-gauge history fetch failures tolerated by the aggregator.",
		}),
	}

	prometheus.MustRegister(
		m.RefreshCycles,
		m.CycleDuration,
		m.EngineReady,
		m.StationsResolved,
		m.ActiveReadings,
		m.FeedErrors,
		m.StationsLinked,
		m.RainCoverage,
		m.GaugeFetchErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RefreshCycles:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "recharge_engine", Name: "refresh_cycles_total"}),
		CycleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "recharge_engine", Name: "cycle_duration_seconds"}),
		EngineReady:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "recharge_engine", Name: "ready"}),
		StationsResolved: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "recharge_engine", Name: "stations_resolved"}),
		ActiveReadings:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "recharge_engine", Name: "active_readings"}),
		FeedErrors:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "recharge_engine", Name: "feed_errors_total"}, []string{"feed"}),
		StationsLinked:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "recharge_engine", Name: "stations_linked"}),
		RainCoverage:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "recharge_engine", Name: "rain_coverage_ratio"}),
		GaugeFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "recharge_engine", Name: "gauge_fetch_errors_total"}),
	}
}
