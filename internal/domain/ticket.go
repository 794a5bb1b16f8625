package domain

import "time"

// TicketStatus is the lifecycle state of a single ticket.
// The only valid sequence is available -> locked -> {sold | available};
// sold is terminal.
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusLocked    TicketStatus = "locked"
	TicketStatusSold      TicketStatus = "sold"
)

// String returns the status as a string
func (s TicketStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is one of the known values
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusAvailable, TicketStatusLocked, TicketStatusSold:
		return true
	}
	return false
}

// CanTransitionTo reports whether the ticket state machine allows
// moving from s to next.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case TicketStatusAvailable:
		return next == TicketStatusLocked
	case TicketStatusLocked:
		return next == TicketStatusSold || next == TicketStatusAvailable
	case TicketStatusSold:
		return false
	}
	return false
}

// Ticket represents one unit of event capacity. Exactly one ticket row
// exists per unit of capacity for the event's lifetime; status is the
// only mutable field.
type Ticket struct {
	ID        string       `json:"id"`
	EventID   string       `json:"event_id"`
	Status    TicketStatus `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Event represents a bookable event. TotalTickets is an immutable
// capacity ceiling; its ticket rows are created with the event and
// never lazily.
type Event struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Venue        string    `json:"venue"`
	StartsAt     time.Time `json:"starts_at"`
	UnitPrice    float64   `json:"unit_price"`
	TotalTickets int       `json:"total_tickets"`
	CreatedAt    time.Time `json:"created_at"`
}
