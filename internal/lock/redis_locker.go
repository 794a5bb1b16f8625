package lock

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/reservation-engine/internal/domain"
	pkgredis "github.com/ticketrush/reservation-engine/pkg/redis"
	"github.com/ticketrush/reservation-engine/pkg/telemetry"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

const scriptReleaseLock = "release_lock"

// lockKeyPrefix namespaces lock keys in Redis
const lockKeyPrefix = "ticket_lock:"

// LockKey returns the Redis key for a ticket lock
func LockKey(ticketID string) string {
	return lockKeyPrefix + ticketID
}

// RedisLocker implements Locker on a single Redis instance using
// SET NX EX for acquisition and a compare-and-delete Lua script for
// release.
type RedisLocker struct {
	client *pkgredis.Client
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(client *pkgredis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// LoadScripts loads the release script into Redis
func (l *RedisLocker) LoadScripts(ctx context.Context) error {
	if _, err := l.client.LoadScript(ctx, scriptReleaseLock, releaseLockScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptReleaseLock, err)
	}
	return nil
}

// Acquire takes the lock for ticketID with a fresh random token
func (l *RedisLocker) Acquire(ctx context.Context, ticketID string, ttl time.Duration) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "lock.redis.acquire")
	defer span.End()

	span.SetAttributes(
		attribute.String("ticket_id", ticketID),
		attribute.Float64("ttl_seconds", ttl.Seconds()),
	)

	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, LockKey(ticketID), token, ttl).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to acquire lock for ticket %s: %w", ticketID, err)
	}

	if !ok {
		span.SetStatus(codes.Error, "contended")
		return "", domain.ErrTicketContended
	}

	span.SetStatus(codes.Ok, "")
	return token, nil
}

// Release deletes the lock only if token still owns it
func (l *RedisLocker) Release(ctx context.Context, ticketID string, token string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "lock.redis.release")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_id", ticketID))

	result := l.client.EvalWithFallback(ctx, scriptReleaseLock, releaseLockScript, []string{LockKey(ticketID)}, token)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return false, fmt.Errorf("failed to release lock for ticket %s: %w", ticketID, result.Err())
	}

	deleted, err := result.Int64()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to parse release result: %w", err)
	}

	span.SetAttributes(attribute.Bool("released", deleted == 1))
	span.SetStatus(codes.Ok, "")
	return deleted == 1, nil
}

// Held reports whether the lock key currently exists
func (l *RedisLocker) Held(ctx context.Context, ticketID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "lock.redis.held")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_id", ticketID))

	n, err := l.client.Exists(ctx, LockKey(ticketID)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check lock for ticket %s: %w", ticketID, err)
	}

	span.SetStatus(codes.Ok, "")
	return n > 0, nil
}

// Ensure RedisLocker implements Locker
var _ Locker = (*RedisLocker)(nil)
