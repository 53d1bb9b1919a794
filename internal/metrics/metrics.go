package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	PanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_panics_total",
			Help: "Handler panics recovered by middleware",
		},
	)

	// Exchange lifecycle
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_transitions_total",
			Help: "Applied exchange transitions",
		},
		[]string{"action", "to"}, // accept|reject|cancel|confirm|complete|request
	)
	ConfirmBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_confirm_blocked_total",
			Help: "Confirmations refused by the identity/payment gate",
		},
		[]string{"reason"},
	)
	CreditsSpent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_credits_spent_total",
			Help: "Credits consumed by confirmations",
		},
	)

	// Providers
	ProviderEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_events_total",
			Help: "Provider webhook events by outcome",
		},
		[]string{"provider", "kind", "result"}, // applied|duplicate|rejected
	)
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Outgoing provider session calls by outcome",
		},
		[]string{"provider", "result"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	NotificationsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Notifications not delivered because the queue was full or delivery failed",
		},
	)
)

// Handler serves /metrics.
var Handler = promhttp.Handler

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once, which tests building several routers rely on.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			PanicsTotal,
			TransitionsTotal,
			ConfirmBlocked,
			CreditsSpent,
			ProviderEvents,
			ProviderCalls,
			WorkerQueueDepth,
			NotificationsDropped,
		)
	})
}
