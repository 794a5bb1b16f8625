package lock

import (
	"context"
	"time"
)

// Locker provides short-lived exclusive holds on tickets. A hold is
// identified by an opaque token; only the holder of the token may
// release it. Holds expire automatically after their TTL so a crashed
// process can never strand a ticket.
type Locker interface {
	// Acquire attempts to take the lock for ticketID. On success it
	// returns the token that proves ownership. If another process
	// already holds the lock it returns domain.ErrTicketContended.
	Acquire(ctx context.Context, ticketID string, ttl time.Duration) (string, error)

	// Release removes the lock for ticketID only if token still owns
	// it. Releasing an expired or foreign lock is a no-op.
	Release(ctx context.Context, ticketID string, token string) (bool, error)

	// Held reports whether any process currently holds the lock.
	Held(ctx context.Context, ticketID string) (bool, error)
}
