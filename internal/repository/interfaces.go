package repository

import (
	"context"
	"time"

	"github.com/ticketrush/reservation-engine/internal/domain"
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	// GetByID retrieves a ticket by ID
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// SelectAvailable returns up to limit available tickets for an
	// event, ordered by id ascending so every caller picks the same
	// tickets for the same inventory state
	SelectAvailable(ctx context.Context, eventID string, limit int) ([]*domain.Ticket, error)
	// CountByStatus counts an event's tickets in the given status
	CountByStatus(ctx context.Context, eventID string, status domain.TicketStatus) (int, error)
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// CreateReservation inserts the pending order, flips each ticket
	// available->locked with a conditional update, and records the
	// order_tickets rows, all in one transaction. If any ticket is no
	// longer available the transaction rolls back and
	// domain.ErrTicketContended is returned.
	CreateReservation(ctx context.Context, order *domain.Order, tickets []domain.OrderTicket) error
	// GetByID retrieves an order by ID
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetByPaymentRef retrieves an order by its payment session reference
	GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error)
	// TicketsForOrder returns the order_tickets rows for an order,
	// including the lock tokens minted at reservation time
	TicketsForOrder(ctx context.Context, orderID string) ([]domain.OrderTicket, error)
	// SettleConfirm moves a pending order to confirmed and its locked
	// tickets to sold in one transaction. Returns
	// domain.ErrAlreadySettled if the order is no longer pending.
	SettleConfirm(ctx context.Context, orderID string) error
	// SettleFail moves a pending order to the given terminal failure
	// status and its locked tickets back to available in one
	// transaction. Returns domain.ErrAlreadySettled if the order is no
	// longer pending.
	SettleFail(ctx context.Context, orderID string, status domain.OrderStatus) error
	// RevertReservation unwinds a reservation whose payment session
	// could not be created: tickets locked->available, order
	// pending->failed, one transaction.
	RevertReservation(ctx context.Context, orderID string) error
	// StalePendingOrders returns pending orders created before the
	// cutoff, oldest first
	StalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error)
}
