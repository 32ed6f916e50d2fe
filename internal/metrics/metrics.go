package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "interview_scheduler"

var (
	once sync.Once

	bookingOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_operations_total",
			Help:      "Count of booking operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	bookingRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_retries_total",
			Help:      "Count of retries caused by concurrent modification.",
		},
		[]string{"operation"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_operation_duration_seconds",
			Help:      "Latency of booking operations including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	slotsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_generated_total",
			Help:      "Count of slots created by generation.",
		},
	)

	slotsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_expired_total",
			Help:      "Count of available slots moved to expired by the sweeper.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingOperations, bookingRetries, operationDuration,
			slotsGenerated, slotsExpired, httpRequests)
	})
}

func ObserveBookingOperation(operation, result string, elapsed time.Duration) {
	bookingOperations.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func IncBookingRetry(operation string) {
	bookingRetries.WithLabelValues(operation).Inc()
}

func AddSlotsGenerated(n int) {
	slotsGenerated.Add(float64(n))
}

func AddSlotsExpired(n int64) {
	slotsExpired.Add(float64(n))
}

func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, statusText(code)).Inc()
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
