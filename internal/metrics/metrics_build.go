package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nownext_build_failed_total",
			Help: "Number of times a build has failed",
		},
		[]string{"entrypoint", "error_type"},
	)

	BuildCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nownext_build_count_total",
			Help: "Total number of builds",
		},
	)

	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nownext_build_duration_seconds",
			Help:    "Build duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"entrypoint"},
	)
)

func BuildSucceeded(entrypoint string, startTime time.Time) {
	BuildCount.Inc()
	BuildDuration.WithLabelValues(entrypoint).Observe(time.Since(startTime).Seconds())
}

func BuildFailure(entrypoint, errorType string) {
	BuildCount.Inc()
	BuildFailed.WithLabelValues(entrypoint, errorType).Inc()
}
