package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 积分引擎指标
	VotesToggled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courseconnect_votes_toggled_total",
			Help: "Committed upvote toggles by item kind and direction",
		},
		[]string{"kind", "direction"},
	)

	AnswersAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courseconnect_answers_accepted_total",
			Help: "Accepted answers, labelled by whether the bonus was granted",
		},
		[]string{"bonus"},
	)

	PointWriteRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courseconnect_point_write_retries_total",
			Help: "Retried point balance writes",
		},
		[]string{"balance"},
	)

	PointWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courseconnect_point_write_failures_total",
			Help: "Point balance writes abandoned after retries or a permanent error",
		},
		[]string{"balance"},
	)

	FeedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courseconnect_feed_events_total",
			Help: "Class feed events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			VotesToggled,
			AnswersAccepted,
			PointWriteRetries,
			PointWriteFailures,
			FeedEvents,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
