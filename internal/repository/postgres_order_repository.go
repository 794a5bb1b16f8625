package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

// PostgresOrderRepository implements OrderRepository using PostgreSQL with pgxpool
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

// CreateReservation inserts the pending order and locks its tickets in
// one transaction. Each ticket transition is a conditional update; a
// ticket that is no longer available rolls the whole transaction back.
func (r *PostgresOrderRepository) CreateReservation(ctx context.Context, order *domain.Order, tickets []domain.OrderTicket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.create_reservation")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("event_id", order.EventID),
		attribute.Int("ticket_count", len(tickets)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin reservation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertOrder := `
		INSERT INTO orders (
			id, user_id, event_id, status, payment_session_ref, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, insertOrder,
		order.ID,
		order.UserID,
		order.EventID,
		order.Status.String(),
		order.PaymentRef,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to insert order: %w", err)
	}

	lockTicket := `
		UPDATE tickets SET status = 'locked', updated_at = $2
		WHERE id = $1 AND status = 'available'
	`
	insertOrderTicket := `
		INSERT INTO order_tickets (order_id, ticket_id, lock_token)
		VALUES ($1, $2, $3)
	`

	now := time.Now()
	for _, t := range tickets {
		result, err := tx.Exec(ctx, lockTicket, t.TicketID, now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to lock ticket %s: %w", t.TicketID, err)
		}
		if result.RowsAffected() == 0 {
			// Ticket was taken between selection and the update
			span.SetAttributes(attribute.String("contended_ticket_id", t.TicketID))
			span.SetStatus(codes.Error, "contended")
			return domain.ErrTicketContended
		}

		if _, err := tx.Exec(ctx, insertOrderTicket, order.ID, t.TicketID, t.LockToken); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to insert order ticket %s: %w", t.TicketID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit reservation tx: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an order by its ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	query := `
		SELECT id, user_id, event_id, status, payment_session_ref, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order, err := scanOrderRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrOrderNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return order, nil
}

// GetByPaymentRef retrieves an order by its payment session reference
func (r *PostgresOrderRepository) GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.get_by_payment_ref")
	defer span.End()

	query := `
		SELECT id, user_id, event_id, status, payment_session_ref, created_at, updated_at
		FROM orders
		WHERE payment_session_ref = $1
	`

	order, err := scanOrderRow(r.pool.QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrOrderNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get order by payment ref: %w", err)
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	span.SetStatus(codes.Ok, "")
	return order, nil
}

// TicketsForOrder returns the order_tickets rows for an order
func (r *PostgresOrderRepository) TicketsForOrder(ctx context.Context, orderID string) ([]domain.OrderTicket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.tickets_for_order")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	query := `
		SELECT order_id, ticket_id, lock_token
		FROM order_tickets
		WHERE order_id = $1
		ORDER BY ticket_id ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get order tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.OrderTicket
	for rows.Next() {
		var t domain.OrderTicket
		if err := rows.Scan(&t.OrderID, &t.TicketID, &t.LockToken); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan order ticket: %w", err)
		}
		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating order tickets: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(tickets)))
	span.SetStatus(codes.Ok, "")
	return tickets, nil
}

// SettleConfirm moves a pending order to confirmed and its locked
// tickets to sold in one transaction
func (r *PostgresOrderRepository) SettleConfirm(ctx context.Context, orderID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.settle_confirm")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	return r.settle(ctx, span, orderID, domain.OrderStatusConfirmed, domain.TicketStatusSold)
}

// SettleFail moves a pending order to the given terminal failure status
// and its locked tickets back to available in one transaction
func (r *PostgresOrderRepository) SettleFail(ctx context.Context, orderID string, status domain.OrderStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.settle_fail")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("status", status.String()),
	)

	return r.settle(ctx, span, orderID, status, domain.TicketStatusAvailable)
}

// settle applies the order transition pending->orderStatus and the
// ticket transition locked->ticketStatus atomically. The ticket update
// is conditional per row: tickets already moved by another path are
// skipped, not an error.
func (r *PostgresOrderRepository) settle(ctx context.Context, span trace.Span, orderID string, orderStatus domain.OrderStatus, ticketStatus domain.TicketStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin settle tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	updateOrder := `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	result, err := tx.Exec(ctx, updateOrder, orderID, orderStatus.String(), now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrOrderNotFound
		}
		span.SetStatus(codes.Error, "already settled")
		return domain.ErrAlreadySettled
	}

	updateTickets := `
		UPDATE tickets SET status = $2, updated_at = $3
		FROM order_tickets ot
		WHERE ot.ticket_id = tickets.id
			AND ot.order_id = $1
			AND tickets.status = 'locked'
	`
	ticketResult, err := tx.Exec(ctx, updateTickets, orderID, ticketStatus.String(), now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update order tickets: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit settle tx: %w", err)
	}

	span.SetAttributes(attribute.Int64("tickets_updated", ticketResult.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return nil
}

// RevertReservation unwinds a reservation whose payment session could
// not be created. Already-settled orders and already-moved tickets are
// skipped silently.
func (r *PostgresOrderRepository) RevertReservation(ctx context.Context, orderID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.revert_reservation")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin revert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	releaseTickets := `
		UPDATE tickets SET status = 'available', updated_at = $2
		FROM order_tickets ot
		WHERE ot.ticket_id = tickets.id
			AND ot.order_id = $1
			AND tickets.status = 'locked'
	`
	if _, err := tx.Exec(ctx, releaseTickets, orderID, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to release order tickets: %w", err)
	}

	failOrder := `
		UPDATE orders SET status = 'failed', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`
	if _, err := tx.Exec(ctx, failOrder, orderID, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to fail order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit revert tx: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// StalePendingOrders returns pending orders created before the cutoff,
// oldest first
func (r *PostgresOrderRepository) StalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.stale_pending")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT id, user_id, event_id, status, payment_session_ref, created_at, updated_at
		FROM orders
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get stale pending orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(orders)))
	span.SetStatus(codes.Ok, "")
	return orders, nil
}

// scanOrderRow scans a single row into an Order struct
func scanOrderRow(row pgx.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var status string

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.EventID,
		&status,
		&order.PaymentRef,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	return order, nil
}

// Ensure PostgresOrderRepository implements OrderRepository
var _ OrderRepository = (*PostgresOrderRepository)(nil)
