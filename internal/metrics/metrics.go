package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	seatReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_reservations_total",
			Help: "Per-seat reservation outcomes",
		},
		[]string{"outcome"},
	)

	bookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Bookings created with at least one claimed seat",
		},
	)

	payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Settlement attempt outcomes",
		},
		[]string{"status"},
	)

	refunds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund outcomes",
		},
		[]string{"status"},
	)

	seatsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seats_released_total",
			Help: "Seats returned to inventory",
		},
		[]string{"reason"},
	)

	gatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_latency_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation"},
	)
)

func SeatReservation(outcome string) {
	seatReservations.WithLabelValues(outcome).Inc()
}

func BookingCreated() {
	bookingsCreated.Inc()
}

func Payment(status string) {
	payments.WithLabelValues(status).Inc()
}

func Refund(status string) {
	refunds.WithLabelValues(status).Inc()
}

func SeatsReleased(reason string, count int) {
	seatsReleased.WithLabelValues(reason).Add(float64(count))
}

func ObserveGateway(operation string, d time.Duration) {
	gatewayLatency.WithLabelValues(operation).Observe(d.Seconds())
}
