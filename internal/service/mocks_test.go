package service

import (
	"context"
	"sync"
	"time"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/internal/gateway"
)

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*domain.Event, error)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &domain.Event{
		ID:           id,
		Name:         "Test Event",
		UnitPrice:    50.00,
		TotalTickets: 100,
	}, nil
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*domain.Ticket, error)
	SelectAvailableFunc func(ctx context.Context, eventID string, limit int) ([]*domain.Ticket, error)
	CountByStatusFunc   func(ctx context.Context, eventID string, status domain.TicketStatus) (int, error)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketRepository) SelectAvailable(ctx context.Context, eventID string, limit int) ([]*domain.Ticket, error) {
	if m.SelectAvailableFunc != nil {
		return m.SelectAvailableFunc(ctx, eventID, limit)
	}
	tickets := make([]*domain.Ticket, 0, limit)
	for i := 0; i < limit; i++ {
		tickets = append(tickets, &domain.Ticket{
			ID:      "ticket-" + string(rune('a'+i)),
			EventID: eventID,
			Status:  domain.TicketStatusAvailable,
		})
	}
	return tickets, nil
}

func (m *MockTicketRepository) CountByStatus(ctx context.Context, eventID string, status domain.TicketStatus) (int, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx, eventID, status)
	}
	return 0, nil
}

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	CreateReservationFunc  func(ctx context.Context, order *domain.Order, tickets []domain.OrderTicket) error
	GetByIDFunc            func(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentRefFunc    func(ctx context.Context, ref string) (*domain.Order, error)
	TicketsForOrderFunc    func(ctx context.Context, orderID string) ([]domain.OrderTicket, error)
	SettleConfirmFunc      func(ctx context.Context, orderID string) error
	SettleFailFunc         func(ctx context.Context, orderID string, status domain.OrderStatus) error
	RevertReservationFunc  func(ctx context.Context, orderID string) error
	StalePendingOrdersFunc func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error)
}

func (m *MockOrderRepository) CreateReservation(ctx context.Context, order *domain.Order, tickets []domain.OrderTicket) error {
	if m.CreateReservationFunc != nil {
		return m.CreateReservationFunc(ctx, order, tickets)
	}
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *MockOrderRepository) GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	if m.GetByPaymentRefFunc != nil {
		return m.GetByPaymentRefFunc(ctx, ref)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *MockOrderRepository) TicketsForOrder(ctx context.Context, orderID string) ([]domain.OrderTicket, error) {
	if m.TicketsForOrderFunc != nil {
		return m.TicketsForOrderFunc(ctx, orderID)
	}
	return []domain.OrderTicket{}, nil
}

func (m *MockOrderRepository) SettleConfirm(ctx context.Context, orderID string) error {
	if m.SettleConfirmFunc != nil {
		return m.SettleConfirmFunc(ctx, orderID)
	}
	return nil
}

func (m *MockOrderRepository) SettleFail(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if m.SettleFailFunc != nil {
		return m.SettleFailFunc(ctx, orderID, status)
	}
	return nil
}

func (m *MockOrderRepository) RevertReservation(ctx context.Context, orderID string) error {
	if m.RevertReservationFunc != nil {
		return m.RevertReservationFunc(ctx, orderID)
	}
	return nil
}

func (m *MockOrderRepository) StalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
	if m.StalePendingOrdersFunc != nil {
		return m.StalePendingOrdersFunc(ctx, olderThan, limit)
	}
	return []*domain.Order{}, nil
}

// MockLocker is a mock implementation of lock.Locker that records
// acquired and released ticket IDs for assertions
type MockLocker struct {
	AcquireFunc func(ctx context.Context, ticketID string, ttl time.Duration) (string, error)
	ReleaseFunc func(ctx context.Context, ticketID, token string) (bool, error)
	HeldFunc    func(ctx context.Context, ticketID string) (bool, error)

	mu       sync.Mutex
	Acquired []string
	Released []string
}

func (m *MockLocker) Acquire(ctx context.Context, ticketID string, ttl time.Duration) (string, error) {
	if m.AcquireFunc != nil {
		token, err := m.AcquireFunc(ctx, ticketID, ttl)
		if err == nil {
			m.record(&m.Acquired, ticketID)
		}
		return token, err
	}
	m.record(&m.Acquired, ticketID)
	return "token-" + ticketID, nil
}

func (m *MockLocker) Release(ctx context.Context, ticketID, token string) (bool, error) {
	m.record(&m.Released, ticketID)
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, ticketID, token)
	}
	return true, nil
}

func (m *MockLocker) Held(ctx context.Context, ticketID string) (bool, error) {
	if m.HeldFunc != nil {
		return m.HeldFunc(ctx, ticketID)
	}
	return false, nil
}

func (m *MockLocker) record(list *[]string, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*list = append(*list, id)
}

func (m *MockLocker) ReleasedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Released)
}

// MockPaymentGateway is a mock implementation of gateway.PaymentGateway
type MockPaymentGateway struct {
	CreateSessionFunc func(ctx context.Context, req *gateway.SessionRequest) (*gateway.SessionResponse, error)
}

func (m *MockPaymentGateway) CreateSession(ctx context.Context, req *gateway.SessionRequest) (*gateway.SessionResponse, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, req)
	}
	return &gateway.SessionResponse{
		SessionID: "cs_test_123",
		URL:       "https://checkout.test/pay/cs_test_123",
	}, nil
}

func (m *MockPaymentGateway) Name() string {
	return "mock"
}
