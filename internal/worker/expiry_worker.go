package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ticketrush/reservation-engine/internal/domain"
	"github.com/ticketrush/reservation-engine/internal/lock"
	"github.com/ticketrush/reservation-engine/internal/metrics"
	"github.com/ticketrush/reservation-engine/internal/repository"
	"github.com/ticketrush/reservation-engine/pkg/logger"
	"github.com/ticketrush/reservation-engine/pkg/retry"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

// ExpiryWorkerConfig holds configuration for the expiry worker
type ExpiryWorkerConfig struct {
	// HoldTTL is how long a pending order may wait for its payment
	// before the sweep reclaims its tickets
	HoldTTL time.Duration
	// SweepInterval is how often the sweep runs
	SweepInterval time.Duration
	// BatchSize caps how many stale orders one sweep processes
	BatchSize int
	// RetryConfig shapes the backoff applied after a sweep fails
	RetryConfig *retry.Config
}

// ExpiryWorker periodically reclaims tickets from pending orders whose
// payment never arrived. It reverts the order and its tickets in the
// database, then releases whatever locks are still standing.
type ExpiryWorker struct {
	orderRepo repository.OrderRepository
	locker    lock.Locker
	config    *ExpiryWorkerConfig

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(
	orderRepo repository.OrderRepository,
	locker lock.Locker,
	config *ExpiryWorkerConfig,
) *ExpiryWorker {
	if config == nil {
		config = &ExpiryWorkerConfig{}
	}
	if config.HoldTTL <= 0 {
		config.HoldTTL = 5 * time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.RetryConfig == nil {
		config.RetryConfig = retry.DefaultConfig()
	}
	return &ExpiryWorker{
		orderRepo: orderRepo,
		locker:    locker,
		config:    config,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; call Stop to
// shut the loop down.
func (w *ExpiryWorker) Start(ctx context.Context) {
	log := logger.Get()
	log.Info("Starting expiry worker",
		zap.Duration("hold_ttl", w.config.HoldTTL),
		zap.Duration("sweep_interval", w.config.SweepInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the sweep loop to exit and waits for it
func (w *ExpiryWorker) Stop() {
	w.stopped.Do(func() {
		close(w.stopCh)
	})
	w.wg.Wait()
}

func (w *ExpiryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	log := logger.Get()
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	retrier := retry.New(w.config.RetryConfig)

	for {
		select {
		case <-ctx.Done():
			log.Info("Expiry worker context cancelled")
			return
		case <-w.stopCh:
			log.Info("Expiry worker stopped")
			return
		case <-ticker.C:
			result := retrier.Do(ctx, func(ctx context.Context) error {
				_, err := w.Sweep(ctx)
				return err
			})
			if result.Err != nil {
				log.Error("Sweep failed",
					zap.Int("attempts", result.Attempts),
					zap.Error(result.Err),
				)
			}
		}
	}
}

// Sweep runs a single pass: it finds pending orders older than the
// hold TTL, reverts each one, and returns how many were expired.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "worker.expiry.sweep")
	defer span.End()

	log := logger.Get()
	start := time.Now()

	cutoff := time.Now().Add(-w.config.HoldTTL)
	orders, err := w.orderRepo.StalePendingOrders(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to list stale orders: %w", err)
	}

	expired := 0
	for _, order := range orders {
		done, err := w.expireOrder(ctx, order)
		if err != nil {
			log.Warn("Failed to expire order",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
			continue
		}
		if done {
			expired++
		}
	}

	if expired > 0 {
		log.Info("Expired stale pending orders",
			zap.Int("expired", expired),
			zap.Int("candidates", len(orders)),
		)
		metrics.RecordExpirations(expired)
	}
	metrics.ObserveSweepDuration(time.Since(start).Seconds())

	return expired, nil
}

// expireOrder reverts one stale order. An order with a lock still
// standing is skipped for this cycle: the booking may still be mid
// flight and the next sweep will catch it once the lock TTL runs out.
// Otherwise the database transaction flips the tickets back to
// available and the order to failed, and any leftover lock is released
// with its stored token.
func (w *ExpiryWorker) expireOrder(ctx context.Context, order *domain.Order) (bool, error) {
	log := logger.Get()

	tickets, err := w.orderRepo.TicketsForOrder(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load order tickets: %w", err)
	}

	for _, t := range tickets {
		held, err := w.locker.Held(ctx, t.TicketID)
		if err != nil {
			return false, fmt.Errorf("failed to check ticket lock: %w", err)
		}
		if held {
			return false, nil
		}
	}

	if err := w.orderRepo.RevertReservation(ctx, order.ID); err != nil {
		return false, fmt.Errorf("failed to revert reservation: %w", err)
	}

	for _, t := range tickets {
		if _, err := w.locker.Release(ctx, t.TicketID, t.LockToken); err != nil {
			log.Warn("failed to release ticket lock",
				zap.String("order_id", order.ID),
				zap.String("ticket_id", t.TicketID),
				zap.Error(err),
			)
		}
	}

	return true, nil
}
