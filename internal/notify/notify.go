// Package notify relays exchange events to the parties' notification
// inboxes. Delivery is fire-and-forget: a failure here is logged and never
// reaches the caller that changed the exchange.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/swapbnb/exchange-coordinator/internal/metrics"
)

const (
	KindRequested      = "exchange.requested"
	KindAccepted       = "exchange.accepted"
	KindRejected       = "exchange.rejected"
	KindCancelled      = "exchange.cancelled"
	KindPartyConfirmed = "exchange.party_confirmed"
	KindConfirmed      = "exchange.confirmed"
	KindCompleted      = "exchange.completed"
	KindPaymentPaid    = "payment.paid"
	KindCreditsAdded   = "credits.added"
)

type Event struct {
	Kind       string
	ExchangeID string
	Recipients []string
	Text       string
	At         time.Time
}

// Sink stores or forwards an event.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// Publisher accepts events from the coordinator.
type Publisher interface {
	Publish(ev Event)
}

type submitter interface {
	Submit(func()) bool
}

// Relay hands events to a Sink on a worker pool.
type Relay struct {
	pool    submitter
	sink    Sink
	timeout time.Duration
}

func NewRelay(pool submitter, sink Sink) *Relay {
	return &Relay{pool: pool, sink: sink, timeout: 5 * time.Second}
}

func (r *Relay) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	ok := r.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.sink.Deliver(ctx, ev); err != nil {
			metrics.NotificationsDropped.Inc()
			slog.Warn("notification delivery failed", "kind", ev.Kind, "exchange_id", ev.ExchangeID, "err", err)
		}
	})
	if !ok {
		metrics.NotificationsDropped.Inc()
		slog.Warn("notification queue full", "kind", ev.Kind, "exchange_id", ev.ExchangeID)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
