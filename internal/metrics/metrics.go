package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Total reservation attempts by result",
		},
		[]string{"event_id", "result"},
	)

	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Total webhook settlements by outcome",
		},
		[]string{"outcome"},
	)

	expirationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_expirations_total",
			Help: "Total pending orders reverted by the expiry sweep",
		},
	)

	lockContentionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_lock_contention_total",
			Help: "Total bookings rejected because a ticket lock was held",
		},
		[]string{"event_id"},
	)

	bookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_duration_seconds",
			Help:    "End-to-end booking flow duration",
			Buckets: prometheus.DefBuckets,
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_sweep_duration_seconds",
			Help:    "Duration of an expiry sweep cycle",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)
)

// RecordReservation records a reservation attempt
func RecordReservation(eventID, result string) {
	reservationsTotal.WithLabelValues(eventID, result).Inc()
}

// RecordSettlement records a webhook settlement
func RecordSettlement(outcome string) {
	settlementsTotal.WithLabelValues(outcome).Inc()
}

// RecordExpirations records orders reverted by the sweep
func RecordExpirations(count int) {
	expirationsTotal.Add(float64(count))
}

// RecordLockContention records a booking lost to lock contention
func RecordLockContention(eventID string) {
	lockContentionTotal.WithLabelValues(eventID).Inc()
}

// ObserveBookingDuration records the booking flow duration in seconds
func ObserveBookingDuration(seconds float64) {
	bookingDuration.Observe(seconds)
}

// ObserveSweepDuration records an expiry sweep cycle duration in seconds
func ObserveSweepDuration(seconds float64) {
	sweepDuration.Observe(seconds)
}
