package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboardhr_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "onboardhr_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	lifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboardhr_lifecycle_operations_total",
		Help: "Employee lifecycle operations by operation and result",
	}, []string{"operation", "result"})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboardhr_notifications_total",
		Help: "Invitation notifications by channel and result",
	}, []string{"channel", "result"})

	notificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onboardhr_notification_queue_depth",
		Help: "Invitation notifications waiting for a worker",
	})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboardhr_logins_total",
		Help: "Login attempts by resolved principal kind and result",
	}, []string{"principal", "result"})

	lazyExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onboardhr_invitations_expired_total",
		Help: "Pending invitations flipped to expired on read",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLifecycle counts a lifecycle mutation outcome ("ok" or an error code)
func ObserveLifecycle(operation, result string) {
	lifecycleTransitions.WithLabelValues(operation, result).Inc()
}

// ObserveNotification counts a notification attempt for a channel
func ObserveNotification(channel, result string) {
	notificationsSent.WithLabelValues(channel, result).Inc()
}

// SetNotificationQueueDepth records the dispatcher backlog
func SetNotificationQueueDepth(n int) {
	if n < 0 {
		n = 0
	}
	notificationQueueDepth.Set(float64(n))
}

// ObserveLogin counts a login attempt
func ObserveLogin(principal, result string) {
	logins.WithLabelValues(principal, result).Inc()
}

// ObserveInvitationExpired counts one lazy invitation expiry
func ObserveInvitationExpired() {
	lazyExpirations.Inc()
}
