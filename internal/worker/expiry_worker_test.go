package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ticketrush/reservation-engine/internal/domain"
)

// mockOrderRepo implements the subset of repository.OrderRepository the
// worker touches
type mockOrderRepo struct {
	StalePendingOrdersFunc func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error)
	TicketsForOrderFunc    func(ctx context.Context, orderID string) ([]domain.OrderTicket, error)
	RevertReservationFunc  func(ctx context.Context, orderID string) error

	mu       sync.Mutex
	Reverted []string
}

func (m *mockOrderRepo) CreateReservation(ctx context.Context, order *domain.Order, tickets []domain.OrderTicket) error {
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderRepo) GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrderRepo) TicketsForOrder(ctx context.Context, orderID string) ([]domain.OrderTicket, error) {
	if m.TicketsForOrderFunc != nil {
		return m.TicketsForOrderFunc(ctx, orderID)
	}
	return []domain.OrderTicket{}, nil
}

func (m *mockOrderRepo) SettleConfirm(ctx context.Context, orderID string) error { return nil }

func (m *mockOrderRepo) SettleFail(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return nil
}

func (m *mockOrderRepo) RevertReservation(ctx context.Context, orderID string) error {
	m.mu.Lock()
	m.Reverted = append(m.Reverted, orderID)
	m.mu.Unlock()
	if m.RevertReservationFunc != nil {
		return m.RevertReservationFunc(ctx, orderID)
	}
	return nil
}

func (m *mockOrderRepo) StalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
	if m.StalePendingOrdersFunc != nil {
		return m.StalePendingOrdersFunc(ctx, olderThan, limit)
	}
	return []*domain.Order{}, nil
}

func (m *mockOrderRepo) RevertedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reverted)
}

// mockLocker implements lock.Locker
type mockLocker struct {
	HeldFunc func(ctx context.Context, ticketID string) (bool, error)

	mu       sync.Mutex
	Released []string
}

func (m *mockLocker) Acquire(ctx context.Context, ticketID string, ttl time.Duration) (string, error) {
	return "token-" + ticketID, nil
}

func (m *mockLocker) Release(ctx context.Context, ticketID, token string) (bool, error) {
	m.mu.Lock()
	m.Released = append(m.Released, ticketID)
	m.mu.Unlock()
	return true, nil
}

func (m *mockLocker) Held(ctx context.Context, ticketID string) (bool, error) {
	if m.HeldFunc != nil {
		return m.HeldFunc(ctx, ticketID)
	}
	return false, nil
}

func staleOrder(id string) *domain.Order {
	return &domain.Order{
		ID:        id,
		UserID:    "user-001",
		EventID:   "event-001",
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now().Add(-10 * time.Minute),
	}
}

func TestExpiryWorker_Sweep(t *testing.T) {
	tests := []struct {
		name         string
		setupMocks   func(*mockOrderRepo, *mockLocker)
		wantExpired  int
		wantErr      bool
		wantReverted int
		wantReleased int
	}{
		{
			name: "expires stale orders and releases locks",
			setupMocks: func(or *mockOrderRepo, l *mockLocker) {
				or.StalePendingOrdersFunc = func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
					return []*domain.Order{staleOrder("order-1"), staleOrder("order-2")}, nil
				}
				or.TicketsForOrderFunc = func(ctx context.Context, orderID string) ([]domain.OrderTicket, error) {
					return []domain.OrderTicket{
						{OrderID: orderID, TicketID: orderID + "-tick", LockToken: "tok"},
					}, nil
				}
			},
			wantExpired:  2,
			wantReverted: 2,
			wantReleased: 2,
		},
		{
			name: "nothing stale",
			setupMocks: func(or *mockOrderRepo, l *mockLocker) {
				or.StalePendingOrdersFunc = func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
					return []*domain.Order{}, nil
				}
			},
			wantExpired: 0,
		},
		{
			name: "order with a live lock is skipped",
			setupMocks: func(or *mockOrderRepo, l *mockLocker) {
				or.StalePendingOrdersFunc = func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
					return []*domain.Order{staleOrder("order-1")}, nil
				}
				or.TicketsForOrderFunc = func(ctx context.Context, orderID string) ([]domain.OrderTicket, error) {
					return []domain.OrderTicket{
						{OrderID: orderID, TicketID: "tick-1", LockToken: "tok"},
					}, nil
				}
				l.HeldFunc = func(ctx context.Context, ticketID string) (bool, error) {
					return true, nil
				}
			},
			wantExpired:  0,
			wantReverted: 0,
			wantReleased: 0,
		},
		{
			name: "revert failure does not stop the batch",
			setupMocks: func(or *mockOrderRepo, l *mockLocker) {
				or.StalePendingOrdersFunc = func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
					return []*domain.Order{staleOrder("order-1"), staleOrder("order-2")}, nil
				}
				or.RevertReservationFunc = func(ctx context.Context, orderID string) error {
					if orderID == "order-1" {
						return errors.New("deadlock detected")
					}
					return nil
				}
			},
			wantExpired:  1,
			wantReverted: 2,
		},
		{
			name: "listing failure surfaces as error",
			setupMocks: func(or *mockOrderRepo, l *mockLocker) {
				or.StalePendingOrdersFunc = func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
					return nil, errors.New("connection refused")
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orderRepo := &mockOrderRepo{}
			locker := &mockLocker{}

			if tt.setupMocks != nil {
				tt.setupMocks(orderRepo, locker)
			}

			w := NewExpiryWorker(orderRepo, locker, &ExpiryWorkerConfig{
				HoldTTL:       5 * time.Minute,
				SweepInterval: time.Second,
				BatchSize:     100,
			})

			expired, err := w.Sweep(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Error("Sweep() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Sweep() unexpected error = %v", err)
				return
			}

			if expired != tt.wantExpired {
				t.Errorf("Sweep() expired %d orders, want %d", expired, tt.wantExpired)
			}
			if got := orderRepo.RevertedCount(); got != tt.wantReverted {
				t.Errorf("Sweep() reverted %d orders, want %d", got, tt.wantReverted)
			}
			locker.mu.Lock()
			released := len(locker.Released)
			locker.mu.Unlock()
			if released != tt.wantReleased {
				t.Errorf("Sweep() released %d locks, want %d", released, tt.wantReleased)
			}
		})
	}
}

func TestExpiryWorker_StartStop(t *testing.T) {
	var mu sync.Mutex
	sweeps := 0

	orderRepo := &mockOrderRepo{
		StalePendingOrdersFunc: func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
			mu.Lock()
			sweeps++
			mu.Unlock()
			return []*domain.Order{}, nil
		},
	}

	w := NewExpiryWorker(orderRepo, &mockLocker{}, &ExpiryWorkerConfig{
		HoldTTL:       5 * time.Minute,
		SweepInterval: 10 * time.Millisecond,
		BatchSize:     10,
	})

	w.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if sweeps == 0 {
		t.Error("expected at least one sweep before Stop")
	}
}
