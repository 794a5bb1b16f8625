package dto

import (
	"time"

	"github.com/ticketrush/reservation-engine/internal/domain"
)

// BookRequest represents a request to reserve tickets for an event
type BookRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// BookResponse represents a successful reservation
type BookResponse struct {
	OrderID    string    `json:"order_id"`
	PaymentRef string    `json:"payment_ref"`
	PaymentURL string    `json:"payment_url"`
	TicketIDs  []string  `json:"ticket_ids"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// OrderResponse represents an order with its tickets
type OrderResponse struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	EventID    string             `json:"event_id"`
	Status     domain.OrderStatus `json:"status"`
	PaymentRef string             `json:"payment_ref"`
	TicketIDs  []string           `json:"ticket_ids"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// FromOrder converts a domain Order and its tickets to an OrderResponse
func FromOrder(o *domain.Order, tickets []domain.OrderTicket) *OrderResponse {
	ticketIDs := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ticketIDs = append(ticketIDs, t.TicketID)
	}

	return &OrderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		EventID:    o.EventID,
		Status:     o.Status,
		PaymentRef: o.PaymentRef,
		TicketIDs:  ticketIDs,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
