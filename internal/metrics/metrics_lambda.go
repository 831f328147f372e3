package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LambdaPackagedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nownext_lambda_packaged_total",
			Help: "Total number of packaged lambdas",
		},
	)

	LambdaSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nownext_lambda_size_bytes",
			Help:    "Size of packaged lambda archives in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8), // 64 KiB .. 8 MiB
		},
	)
)

func LambdaPackaged(size int) {
	LambdaPackagedCount.Inc()
	LambdaSize.Observe(float64(size))
}
