// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Orders
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_orders_created_total",
			Help: "Orders created, by order type",
		},
		[]string{"order_type"},
	)

	OrderIdempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_order_idempotent_replays_total",
			Help: "Create requests answered with an existing order",
		},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_order_transitions_total",
			Help: "Order status transitions",
		},
		[]string{"from", "to"},
	)

	KOTPrints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_kot_prints_total",
			Help: "Kitchen ticket prints",
		},
		[]string{"reprint"},
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_events_published_total",
			Help: "Events handed to the bus",
		},
		[]string{"event"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_event_publish_failures_total",
			Help: "Events the bus failed to publish",
		},
		[]string{"event"},
	)

	// Realtime
	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_realtime_clients",
			Help: "Connected websocket clients",
		},
	)

	RealtimeDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_realtime_dropped_clients_total",
			Help: "Clients disconnected because their send buffer was full",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func RecordTransition(from, to string) {
	OrderTransitions.WithLabelValues(from, to).Inc()
}

func RecordKOTPrint(reprint bool) {
	KOTPrints.WithLabelValues(strconv.FormatBool(reprint)).Inc()
}

func RecordPublish(event string, err error) {
	if err != nil {
		EventPublishFailures.WithLabelValues(event).Inc()
		return
	}
	EventsPublished.WithLabelValues(event).Inc()
}

// Middleware observes request latency labelled by the matched route pattern.
// Mount it after the logging middleware so the status is already rendered.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(c.Method(), route, strconv.Itoa(c.Response().StatusCode())).
			Observe(time.Since(start).Seconds())
		return err
	}
}
