package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "boiler_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the sync pipeline.
type Metrics struct {
	SyncRuns     *prometheus.CounterVec // labels: outcome={success,error,skipped}
	SyncRunning  prometheus.Gauge
	SyncDuration prometheus.Histogram

	// Output metrics.
	RecordsEmitted *prometheus.CounterVec // labels: kind={snapshot,daily,hourly,issue}
	FlaggedValues  *prometheus.CounterVec // labels: kind={negative_clamped,decode_degraded}, boiler
	SnapshotRow    prometheus.Gauge

	// Source and cache metrics.
	TransformCache      *prometheus.CounterVec   // labels: result={hit,miss}
	SourceFetchDuration *prometheus.HistogramVec // labels: source={file,http}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all pipeline metrics and registers them
// with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync runs by outcome.",
		}, []string{"outcome"}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_running",
			Help:      "1 while the periodic sync loop is active, 0 when shut down.",
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete fetch, build and publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Records published to the sink by kind.",
		}, []string{"kind"}),
		FlaggedValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flagged_values_total",
			Help:      "Cell values clamped or degraded during extraction.",
		}, []string{"kind", "boiler"}),
		SnapshotRow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_source_row",
			Help:      "Zero-based row the latest snapshot was read from, -1 when none qualified.",
		}),
		TransformCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_cache_total",
			Help:      "Build cache lookups by result.",
		}, []string{"result"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Time to fetch the workbook bytes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.SyncRuns,
		m.SyncRunning,
		m.SyncDuration,
		m.RecordsEmitted,
		m.FlaggedValues,
		m.SnapshotRow,
		m.TransformCache,
		m.SourceFetchDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		SyncRuns:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "sync_runs_total"}, []string{"outcome"}),
		SyncRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "sync_running"}),
		SyncDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "sync_duration_seconds"}),
		RecordsEmitted:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "records_emitted_total"}, []string{"kind"}),
		FlaggedValues:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "flagged_values_total"}, []string{"kind", "boiler"}),
		SnapshotRow:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "snapshot_source_row"}),
		TransformCache:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "transform_cache_total"}, []string{"result"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "source_fetch_duration_seconds"}, []string{"source"}),
	}
}
