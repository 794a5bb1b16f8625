package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/internal/lock"
	"github.com/ticketrush/reservation-engine/internal/metrics"
	"github.com/ticketrush/reservation-engine/internal/notify"
	"github.com/ticketrush/reservation-engine/internal/repository"
	"github.com/ticketrush/reservation-engine/pkg/logger"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

// SettlementService applies payment outcomes to pending orders
type SettlementService interface {
	// Settle resolves the order identified by trackingID according to
	// the payment outcome. Settling an already-settled order is a no-op.
	Settle(ctx context.Context, outcome domain.PaymentOutcome, trackingID string) error
}

// settlementService implements SettlementService
type settlementService struct {
	orderRepo repository.OrderRepository
	locker    lock.Locker
	notifier  notify.Notifier
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	orderRepo repository.OrderRepository,
	locker lock.Locker,
	notifier notify.Notifier,
) SettlementService {
	if notifier == nil {
		notifier = notify.NewNoOpNotifier()
	}
	return &settlementService{
		orderRepo: orderRepo,
		locker:    locker,
		notifier:  notifier,
	}
}

// Settle resolves an order from a payment outcome. Succeeded confirms
// the order and marks its tickets sold; failed and cancelled return the
// tickets to inventory. Outcomes that do not settle are acknowledged
// without touching the order. The whole method is idempotent: a
// duplicate webhook finds the order already settled and does nothing.
func (s *settlementService) Settle(ctx context.Context, outcome domain.PaymentOutcome, trackingID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.settlement.settle")
	defer span.End()

	span.SetAttributes(
		attribute.String("outcome", outcome.String()),
		attribute.String("tracking_id", trackingID),
	)

	if trackingID == "" {
		span.SetStatus(codes.Error, "invalid tracking_id")
		return domain.ErrInvalidOrderID
	}

	if !outcome.Settles() {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	order, err := s.orderRepo.GetByPaymentRef(ctx, trackingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("order_id", order.ID))

	if !order.IsPending() {
		// Duplicate delivery; the first one already settled the order
		span.SetStatus(codes.Ok, "already settled")
		return nil
	}

	status := orderStatusFor(outcome)
	switch outcome {
	case domain.PaymentOutcomeSucceeded:
		err = s.orderRepo.SettleConfirm(ctx, order.ID)
	default:
		err = s.orderRepo.SettleFail(ctx, order.ID, status)
	}
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			// Lost the race against a concurrent delivery
			span.SetStatus(codes.Ok, "already settled")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.releaseLocks(ctx, order.ID)

	s.notifier.OrderSettled(ctx, &notify.OrderSettledEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		EventID:    order.EventID,
		Status:     status,
		OccurredAt: time.Now(),
	})

	metrics.RecordSettlement(outcome.String())

	span.SetStatus(codes.Ok, "")
	return nil
}

// releaseLocks releases the hold on every ticket of a settled order
// using the tokens persisted at reservation time. A lock that already
// expired or was taken by a newer reservation is left alone.
func (s *settlementService) releaseLocks(ctx context.Context, orderID string) {
	log := logger.Get()

	tickets, err := s.orderRepo.TicketsForOrder(ctx, orderID)
	if err != nil {
		log.Warn("failed to load tickets for lock release",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return
	}

	for _, t := range tickets {
		if _, err := s.locker.Release(ctx, t.TicketID, t.LockToken); err != nil {
			log.Warn("failed to release ticket lock",
				zap.String("order_id", orderID),
				zap.String("ticket_id", t.TicketID),
				zap.Error(err),
			)
		}
	}
}

func orderStatusFor(outcome domain.PaymentOutcome) domain.OrderStatus {
	switch outcome {
	case domain.PaymentOutcomeSucceeded:
		return domain.OrderStatusConfirmed
	case domain.PaymentOutcomeCancelled:
		return domain.OrderStatusCancelled
	default:
		return domain.OrderStatusFailed
	}
}
