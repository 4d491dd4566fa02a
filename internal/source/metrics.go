package source

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "user_source_fetch_total", Help: "Count of user list fetches"},
		[]string{"source", "result"},
	)
	fetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "user_source_fetch_duration_seconds",
			Help:    "Latency of user list fetches",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"},
	)
)

func init() { prometheus.MustRegister(fetchTotal, fetchLatency) }

func observe(name string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	fetchTotal.WithLabelValues(name, result).Inc()
	fetchLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
