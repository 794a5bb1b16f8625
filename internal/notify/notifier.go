package notify

import (
	"context"
	"time"

	"github.com/ticketrush/reservation-engine/internal/domain"
)

// TicketsReservedEvent is published when tickets are locked for an order
type TicketsReservedEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	EventID    string    `json:"event_id"`
	TicketIDs  []string  `json:"ticket_ids"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderSettledEvent is published when an order reaches a terminal state
type OrderSettledEvent struct {
	OrderID    string             `json:"order_id"`
	UserID     string             `json:"user_id"`
	EventID    string             `json:"event_id"`
	Status     domain.OrderStatus `json:"status"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Notifier publishes booking lifecycle notifications. Publishing is
// best-effort: implementations log failures and never block or fail
// the calling flow.
type Notifier interface {
	TicketsReserved(ctx context.Context, event *TicketsReservedEvent)
	OrderSettled(ctx context.Context, event *OrderSettledEvent)
	Close()
}

// NoOpNotifier is used when no broker is configured or reachable
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) TicketsReserved(ctx context.Context, event *TicketsReservedEvent) {}

func (n *NoOpNotifier) OrderSettled(ctx context.Context, event *OrderSettledEvent) {}

func (n *NoOpNotifier) Close() {}

// Ensure NoOpNotifier implements Notifier
var _ Notifier = (*NoOpNotifier)(nil)
