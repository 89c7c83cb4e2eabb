package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of rejected booking requests",
	}, []string{"reason"})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of cancelled bookings",
	})

	BookingsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_completed_total",
		Help: "Total number of bookings marked completed after checkout",
	})

	RoomsReservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rooms_reserved_total",
		Help: "Total number of successful room reservations",
	})

	RoomsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rooms_released_total",
		Help: "Total number of rooms released back to inventory",
	})

	RoomReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "room_reserve_latency_seconds",
		Help:    "Latency of room reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts",
	})

	PaymentSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_success_total",
		Help: "Total number of successful payments",
	})

	PaymentFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_failed_total",
		Help: "Total number of failed payments",
	})

	PaymentRefundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_refunded_total",
		Help: "Total number of refunded payments",
	})

	RefundsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_failed_total",
		Help: "Total number of failed refunds requiring manual reconciliation",
	})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment processing",
		Buckets: prometheus.DefBuckets,
	})

	PointsAwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_awarded_total",
		Help: "Total loyalty points awarded",
	})

	PointsRedeemedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_redeemed_total",
		Help: "Total loyalty points redeemed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
