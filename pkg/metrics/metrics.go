package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Dispatch metrics
	RequestsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_requests_created_total",
			Help: "Total number of delivery requests created",
		},
		[]string{"kind"},
	)

	ClaimAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_claim_attempts_total",
			Help: "Total number of claim attempts by outcome",
		},
		[]string{"result"},
	)

	RequestsTimedOutTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_requests_timed_out_total",
			Help: "Total number of pending requests cancelled by timeout",
		},
	)

	CouriersOnlineGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_couriers_online",
			Help: "Current number of online couriers",
		},
	)

	SettlementRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_records_total",
			Help: "Settlement records produced by aggregation runs",
		},
		[]string{"subject_type", "outcome"},
	)

	WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	// Broker metrics
	BrokerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"exchange", "status"},
	)

	BrokerMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"queue", "status"},
	)
)

// RecordHTTPMetrics records request count and duration for one request.
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordClaim records a claim attempt outcome (won, already_taken,
// not_eligible, error).
func RecordClaim(result string) {
	ClaimAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordBrokerPublish records a publish attempt against an exchange.
func RecordBrokerPublish(exchange string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BrokerMessagesPublished.WithLabelValues(exchange, status).Inc()
}

// RecordBrokerConsume records a consumed delivery for a queue.
func RecordBrokerConsume(queue string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BrokerMessagesConsumed.WithLabelValues(queue, status).Inc()
}
