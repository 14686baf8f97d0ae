package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wxmap_render_duration_seconds",
			Help:    "Render pass duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .2, .5, 1},
		},
		[]string{"mode"},
	)

	RenderPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_render_passes_total",
			Help: "Total render passes by outcome",
		},
		[]string{"mode", "result"},
	)

	SamplesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_samples_excluded_total",
			Help: "Samples dropped for missing or invalid values",
		},
		[]string{"metric"},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_refresh_runs_total",
			Help: "Total data refresh runs",
		},
		[]string{"status"},
	)

	RecordsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wxmap_records_imported_total",
			Help: "Total station-daily records imported",
		},
		[]string{"source"},
	)

	RemoteFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wxmap_remote_fetch_latency_seconds",
			Help:    "Remote station data download latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)
