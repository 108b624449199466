package notify

import (
	"context"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ledger"
)

// Event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Event describes something that happened to an order.
type Event struct {
	Type           string
	Order          ledger.Order
	PreviousStatus string
}

// Notifier receives order events. Implementations must not block the caller
// on slow downstream delivery.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
