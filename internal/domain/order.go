package domain

import "time"

// OrderStatus is the lifecycle state of an order. An order is created
// pending and transitions exactly once to confirmed, failed or
// cancelled; all three are terminal. Orders are never deleted.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// String returns the status as a string
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the order can no longer change state
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusFailed || s == OrderStatusCancelled
}

// Order is the durable record of a reservation attempt.
// PaymentRef is the opaque payment-session reference minted at
// creation; webhook callbacks correlate to the order through it.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	EventID    string      `json:"event_id"`
	Status     OrderStatus `json:"status"`
	PaymentRef string      `json:"payment_ref"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// IsPending reports whether the order is still awaiting settlement
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// BelongsToUser reports whether the order belongs to the given user
func (o *Order) BelongsToUser(userID string) bool {
	return o.UserID == userID
}

// OrderTicket binds an order to one of the tickets it reserved.
// LockToken is the value the reservation wrote into the distributed
// lock for that ticket; settlement uses it to release the lock without
// clobbering a later holder. Rows are written atomically with the
// order and are immutable afterwards.
type OrderTicket struct {
	OrderID   string `json:"order_id"`
	TicketID  string `json:"ticket_id"`
	LockToken string `json:"-"`
}
