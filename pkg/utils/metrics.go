package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_attempts_created_total",
		Help: "Total number of booking attempts created",
	})

	AttemptsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_attempts_expired_total",
		Help: "Total number of booking attempts moved to expired",
	})

	AttemptsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_attempts_failed_total",
		Help: "Total number of booking attempts moved to failed",
	}, []string{"reason"})

	RoomsSelectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_rooms_selected_total",
		Help: "Total number of rooms attached to attempts",
	})

	RoomSelectionRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_room_selection_rejected_total",
		Help: "Total number of rejected room selections",
	}, []string{"reason"})

	PaymentsInitiatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Total number of payments initiated with the provider",
	})

	PaymentsReconciledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_reconciled_total",
		Help: "Total number of reconciled payment results",
	}, []string{"source", "outcome"})

	ProviderCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_provider_call_latency_seconds",
		Help:    "Latency of payment provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "result"})

	BookingsFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_finalized_total",
		Help: "Total number of confirmed bookings",
	})

	FinalizeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_finalize_latency_seconds",
		Help:    "Latency of booking finalization",
		Buckets: prometheus.DefBuckets,
	})

	FinalizationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_finalization_failures_total",
		Help: "Total number of successful payments that could not be finalized",
	}, []string{"reason"})

	AvailabilityCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_cache_requests_total",
		Help: "Availability cache lookups by result",
	}, []string{"result"})

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
