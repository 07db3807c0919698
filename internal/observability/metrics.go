package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the staff-chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	queuePublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_queue_jobs_published_total",
			Help: "Total number of send jobs published to the outbound queue.",
		},
	)
	queueConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_queue_jobs_consumed_total",
			Help: "Total number of send jobs durably persisted by the worker.",
		},
	)
	queueErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_queue_errors_total",
			Help: "Total number of queue publish/consume errors.",
		},
		[]string{"stage"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP event publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		queuePublishedTotal,
		queueConsumedTotal,
		queueErrorsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncQueuePublished() {
	queuePublishedTotal.Inc()
}

func IncQueueConsumed() {
	queueConsumedTotal.Inc()
}

func IncQueueError(stage string) {
	queueErrorsTotal.WithLabelValues(stage).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
