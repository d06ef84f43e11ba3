package metrics

import (
	"context"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UseCaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freelance_use_case_total",
			Help: "Lifecycle use cases executed, by outcome",
		},
		[]string{"use_case", "outcome"}, // outcome: ok or an error kind
	)

	UseCaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freelance_use_case_duration_seconds",
			Help:    "Lifecycle use case duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"use_case"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freelance_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	PayoutsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freelance_payouts_dispatched_total",
			Help: "Payout orders re-dispatched by the sweep",
		},
		[]string{"result"}, // result: sent, failed
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freelance_events_published_total",
			Help: "Change events published, by type",
		},
		[]string{"type"},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freelance_live_connections",
			Help: "Open live update connections",
		},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordPayoutSweep(sent, failed int) {
	PayoutsDispatched.WithLabelValues("sent").Add(float64(sent))
	PayoutsDispatched.WithLabelValues("failed").Add(float64(failed))
}

// UseCaseObserver counts and times service use cases.
type UseCaseObserver struct{}

func (UseCaseObserver) ObserveUseCase(_ context.Context, e service.UseCaseEvent) {
	outcome := "ok"
	if e.Err != nil {
		outcome = e.ErrorKind()
	}
	UseCaseTotal.WithLabelValues(e.Name, outcome).Inc()
	UseCaseDuration.WithLabelValues(e.Name).Observe(e.Duration.Seconds())
}

// EventPublisher counts published events. It is meant to sit beside the
// live publisher in an events.MultiPublisher.
type EventPublisher struct{}

func (EventPublisher) Publish(_ context.Context, e events.Event) error {
	EventsPublished.WithLabelValues(string(e.Type)).Inc()
	return nil
}
