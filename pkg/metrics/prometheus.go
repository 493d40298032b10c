package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "edrive"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "http_requests_in_flight", Help: "Requests currently being served"},
	)

	RequestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_requests_created_total", Help: "Ride requests created by category"},
		[]string{"category"},
	)
	OffersCreated = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "offers_created_total", Help: "Offers submitted by drivers"},
	)
	AcceptAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "accept_attempts_total", Help: "Accept attempts by outcome"},
		[]string{"outcome"},
	)
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "request_transitions_total", Help: "Successful status transitions"},
		[]string{"to"},
	)
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Notifications by delivery outcome"},
		[]string{"outcome"},
	)
	SubscriptionDrops = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "subscription_drops_total", Help: "Live events dropped on full subscriber buffers"},
	)
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "websocket_connections", Help: "Open WebSocket connections"},
	)
)

// PrometheusMiddleware records request count and latency per route
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// DropHook counts dropped live events; pass to pubsub.WithDropHook
func DropHook(string) {
	SubscriptionDrops.Inc()
}
