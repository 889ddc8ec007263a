package ledger

import (
	"context"
	"time"

	"frontdesk-platform/pkg/logger"
	"frontdesk-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const defaultReservationTTL = 10 * time.Minute

// Reservation is the Redis fast path in front of the durable idempotency
// ledger: a short-lived set-if-absent on the event id that rejects obvious
// redeliveries without touching Postgres.
//
// Best-effort only. Redis being down, slow, or flushed simply means every
// delivery proceeds to the ledger, whose unique constraint stays the source
// of truth. Reservations are released when handling fails, so the provider's
// retry is not blocked by the fast path.
type Reservation struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReservation(rdb *redis.Client, ttl time.Duration) *Reservation {
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}
	return &Reservation{rdb: rdb, ttl: ttl}
}

func reservationKey(provider, eventID string) string {
	return "webhook:event:" + provider + ":" + eventID
}

// Claim reserves an event id. False means the id is already reserved and the
// delivery is almost certainly a duplicate. Errors are failure-open: the
// caller proceeds to the authoritative ledger check.
func (r *Reservation) Claim(ctx context.Context, provider, eventID string) bool {
	if r == nil || r.rdb == nil || eventID == "" {
		return true
	}
	ok, err := utils.ReserveEvent(ctx, r.rdb, reservationKey(provider, eventID), r.ttl)
	if err != nil {
		logger.From(ctx).Warn("event reservation unavailable", "err", err, "provider", provider)
		return true
	}
	return ok
}

// Release drops a reservation after a failed handling attempt.
func (r *Reservation) Release(ctx context.Context, provider, eventID string) {
	if r == nil || r.rdb == nil || eventID == "" {
		return
	}
	if err := utils.ReleaseEvent(ctx, r.rdb, reservationKey(provider, eventID)); err != nil {
		logger.From(ctx).Warn("event reservation release failed", "err", err, "provider", provider)
	}
}
