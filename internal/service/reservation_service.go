package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/internal/dto"
	"github.com/ticketrush/reservation-engine/internal/gateway"
	"github.com/ticketrush/reservation-engine/internal/lock"
	"github.com/ticketrush/reservation-engine/internal/metrics"
	"github.com/ticketrush/reservation-engine/internal/notify"
	"github.com/ticketrush/reservation-engine/internal/repository"
	"github.com/ticketrush/reservation-engine/pkg/logger"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

// ReservationService defines the interface for the booking flow
type ReservationService interface {
	// Book reserves quantity tickets for a user on an event and
	// creates a payment session for them
	Book(ctx context.Context, userID, eventID string, quantity int) (*dto.BookResponse, error)

	// GetOrder retrieves an order with its tickets
	GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error)
}

// reservationService implements ReservationService
type reservationService struct {
	eventRepo  repository.EventRepository
	ticketRepo repository.TicketRepository
	orderRepo  repository.OrderRepository
	locker     lock.Locker
	gateway    gateway.PaymentGateway
	notifier   notify.Notifier
	holdTTL    time.Duration
	maxQty     int
	currency   string
}

// ReservationServiceConfig contains configuration for the reservation service
type ReservationServiceConfig struct {
	HoldTTL     time.Duration
	MaxQuantity int
	Currency    string
}

// NewReservationService creates a new reservation service
func NewReservationService(
	eventRepo repository.EventRepository,
	ticketRepo repository.TicketRepository,
	orderRepo repository.OrderRepository,
	locker lock.Locker,
	paymentGateway gateway.PaymentGateway,
	notifier notify.Notifier,
	cfg *ReservationServiceConfig,
) ReservationService {
	holdTTL := 5 * time.Minute
	maxQty := 10
	currency := "usd"
	if cfg != nil {
		if cfg.HoldTTL > 0 {
			holdTTL = cfg.HoldTTL
		}
		if cfg.MaxQuantity > 0 {
			maxQty = cfg.MaxQuantity
		}
		if cfg.Currency != "" {
			currency = cfg.Currency
		}
	}
	if notifier == nil {
		notifier = notify.NewNoOpNotifier()
	}
	return &reservationService{
		eventRepo:  eventRepo,
		ticketRepo: ticketRepo,
		orderRepo:  orderRepo,
		locker:     locker,
		gateway:    paymentGateway,
		notifier:   notifier,
		holdTTL:    holdTTL,
		maxQty:     maxQty,
		currency:   currency,
	}
}

// Book runs the reservation flow: deterministic ticket selection,
// all-or-nothing lock acquisition, the reservation transaction, and
// payment session creation. Any failure after locks are taken releases
// them before returning.
func (s *reservationService) Book(ctx context.Context, userID, eventID string, quantity int) (*dto.BookResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.book")
	defer span.End()

	start := time.Now()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}
	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if quantity <= 0 || quantity > s.maxQty {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, domain.ErrInvalidQuantity
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("event_id", eventID),
		attribute.Int("quantity", quantity),
	)

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tickets, err := s.ticketRepo.SelectAvailable(ctx, eventID, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(tickets) < quantity {
		span.SetStatus(codes.Error, "insufficient inventory")
		metrics.RecordReservation(eventID, "insufficient")
		return nil, domain.ErrInsufficientInventory
	}

	// All-or-nothing lock acquisition: the first contended ticket
	// aborts the whole attempt and releases what we already hold.
	orderTickets := make([]domain.OrderTicket, 0, quantity)
	for _, t := range tickets {
		token, err := s.locker.Acquire(ctx, t.ID, s.holdTTL)
		if err != nil {
			s.releaseLocks(ctx, orderTickets)
			if errors.Is(err, domain.ErrTicketContended) {
				span.SetStatus(codes.Error, "contended")
				metrics.RecordLockContention(eventID)
				metrics.RecordReservation(eventID, "contended")
				return nil, domain.ErrTicketContended
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		orderTickets = append(orderTickets, domain.OrderTicket{
			TicketID:  t.ID,
			LockToken: token,
		})
	}

	now := time.Now()
	order := &domain.Order{
		ID:         uuid.New().String(),
		UserID:     userID,
		EventID:    eventID,
		Status:     domain.OrderStatusPending,
		PaymentRef: uuid.New().String(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i := range orderTickets {
		orderTickets[i].OrderID = order.ID
	}

	if err := s.orderRepo.CreateReservation(ctx, order, orderTickets); err != nil {
		s.releaseLocks(ctx, orderTickets)
		if errors.Is(err, domain.ErrTicketContended) {
			span.SetStatus(codes.Error, "contended")
			metrics.RecordLockContention(eventID)
			metrics.RecordReservation(eventID, "contended")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	expiresAt := now.Add(s.holdTTL)
	ticketIDs := make([]string, 0, quantity)
	for _, t := range orderTickets {
		ticketIDs = append(ticketIDs, t.TicketID)
	}

	session, err := s.gateway.CreateSession(ctx, &gateway.SessionRequest{
		TrackingID: order.PaymentRef,
		OrderID:    order.ID,
		EventName:  event.Name,
		Quantity:   quantity,
		UnitPrice:  event.UnitPrice,
		Currency:   s.currency,
	})
	if err != nil {
		// Unwind immediately: the buyer gets a clean failure and the
		// tickets return to inventory without waiting for the sweep.
		s.rollbackReservation(ctx, order.ID, orderTickets)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordReservation(eventID, "payment_unavailable")
		return nil, err
	}

	s.notifier.TicketsReserved(ctx, &notify.TicketsReservedEvent{
		OrderID:    order.ID,
		UserID:     userID,
		EventID:    eventID,
		TicketIDs:  ticketIDs,
		ExpiresAt:  expiresAt,
		OccurredAt: now,
	})

	metrics.RecordReservation(eventID, "reserved")
	metrics.ObserveBookingDuration(time.Since(start).Seconds())

	span.SetAttributes(attribute.String("order_id", order.ID))
	span.SetStatus(codes.Ok, "")
	return &dto.BookResponse{
		OrderID:    order.ID,
		PaymentRef: order.PaymentRef,
		PaymentURL: session.URL,
		TicketIDs:  ticketIDs,
		ExpiresAt:  expiresAt,
	}, nil
}

// GetOrder retrieves an order with its tickets
func (s *reservationService) GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.get_order")
	defer span.End()

	if orderID == "" {
		span.SetStatus(codes.Error, "invalid order_id")
		return nil, domain.ErrInvalidOrderID
	}

	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tickets, err := s.orderRepo.TicketsForOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.FromOrder(order, tickets), nil
}

// releaseLocks releases every lock we hold for the given tickets.
// Failures are logged, not returned: the TTL reclaims anything missed.
func (s *reservationService) releaseLocks(ctx context.Context, tickets []domain.OrderTicket) {
	log := logger.Get()
	for _, t := range tickets {
		if _, err := s.locker.Release(ctx, t.TicketID, t.LockToken); err != nil {
			log.Warn("failed to release ticket lock",
				zap.String("ticket_id", t.TicketID),
				zap.Error(err),
			)
		}
	}
}

// rollbackReservation unwinds the reservation transaction and releases
// the locks after a payment-session failure
func (s *reservationService) rollbackReservation(ctx context.Context, orderID string, tickets []domain.OrderTicket) {
	log := logger.Get()
	if err := s.orderRepo.RevertReservation(ctx, orderID); err != nil {
		// The expiry sweep will pick this order up later
		log.Error("failed to revert reservation",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
	s.releaseLocks(ctx, tickets)
}
