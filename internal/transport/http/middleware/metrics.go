package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by route template"},
		[]string{"path", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of non-streaming HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"},
	)
	httpStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "http_streams_active", Help: "Open long-lived (SSE) connections"},
		[]string{"path"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpStreams) }

// Metrics 按路由模板打点，session id 不进标签
// streams 中的路由只计在线连接数，不进延迟直方图
func Metrics(streams ...string) gin.HandlerFunc {
	isStream := make(map[string]bool, len(streams))
	for _, p := range streams {
		isStream[p] = true
	}
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if isStream[path] {
			g := httpStreams.WithLabelValues(path)
			g.Inc()
			defer g.Dec()
			c.Next()
			httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
			return
		}

		start := time.Now()
		c.Next()
		httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
