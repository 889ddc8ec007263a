package telephony

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"frontdesk-platform/internal/calls"
	"frontdesk-platform/internal/ledger"
	"frontdesk-platform/internal/notify"
	"frontdesk-platform/internal/tenant"
	"frontdesk-platform/pkg/logger"
	"frontdesk-platform/pkg/utils"

	"github.com/google/uuid"
)

// Stores bundles the persistence surfaces a telephony event touches.
type Stores struct {
	Calls     calls.Store
	Subs      tenant.SubscriptionStore
	Ledger    *ledger.Service
	FollowUps notify.Store
}

// RunFunc executes one reconciliation unit of work. The Postgres runner wraps
// fn in a transaction over tx-scoped stores, so the ledger insert (the
// idempotency witness) and every state mutation commit or roll back together.
// The memory runner used in tests calls fn directly.
type RunFunc func(ctx context.Context, fn func(ctx context.Context, s Stores) error) error

// MemoryRunner runs reconciliation directly against fixed stores.
func MemoryRunner(s Stores) RunFunc {
	return func(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
		return fn(ctx, s)
	}
}

// PostgresRunner builds tx-scoped stores for each reconciliation, so the
// ledger claim and every mutation share one transaction.
func PostgresRunner(db *sql.DB) RunFunc {
	return func(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
		return utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, Stores{
				Calls:     calls.NewPostgresStore(tx),
				Subs:      tenant.NewPostgresSubscriptionStore(tx),
				Ledger:    ledger.NewService(ledger.NewPostgresRepo(tx)),
				FollowUps: notify.NewPostgresRepo(tx),
			})
		})
	}
}

// Outcome reports what a delivery did, for response bodies and logs.
type Outcome struct {
	Duplicate      bool
	Created        bool
	Applied        bool
	MinutesAccrued int64
	Missed         bool
}

// Reconciler folds telephony events into call and billing state.
//
// Delivery is at-least-once and unordered. Each handler claims the event id
// in the ledger first; the loser of a concurrent duplicate race gets
// ErrDuplicateEvent from the unique constraint and reports a duplicate
// outcome with no side effects.
type Reconciler struct {
	run RunFunc
	res *ledger.Reservation
}

func NewReconciler(run RunFunc) *Reconciler {
	return &Reconciler{run: run}
}

// WithReservation adds the Redis fast path for duplicate suppression.
// Optional; the ledger constraint alone is already correct.
func (r *Reconciler) WithReservation(res *ledger.Reservation) *Reconciler {
	r.res = res
	return r
}

// HandleInitiated creates the call record for a new inbound call. Redelivery
// of the same CallSid is a no-op either way: the ledger claim catches it
// first, the conditional insert catches a pre-existing row.
func (r *Reconciler) HandleInitiated(ctx context.Context, ev CallInitiated) (Outcome, error) {
	if !r.res.Claim(ctx, Provider, ev.EventID()) {
		return Outcome{Duplicate: true}, nil
	}

	var out Outcome
	err := r.run(ctx, func(ctx context.Context, s Stores) error {
		// Read-only check first: a redelivery must not trip the unique
		// constraint and abort the transaction.
		seen, err := s.Ledger.SeenEvent(ctx, Provider, ev.EventID())
		if err != nil {
			return err
		}
		if seen {
			out.Duplicate = true
			return nil
		}

		msg := fmt.Sprintf("call initiated from %s to %s", ev.From, ev.To)
		if err := s.Ledger.RecordEvent(ctx, ev.TenantID, ledger.CategoryTelephony, Provider, ev.EventID(), msg); err != nil {
			return err
		}

		created, err := s.Calls.CreateIfAbsent(ctx, calls.Call{
			ID:              uuid.NewString(),
			TenantID:        ev.TenantID,
			ProviderCallRef: ev.ProviderCallRef,
			FromNumber:      ev.From,
			ToNumber:        ev.To,
			Status:          ev.Status,
			RawMetadata:     ev.Extra,
			CreatedAt:       ev.OccurredAt,
		})
		if err != nil {
			return err
		}
		out.Created = created
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateEvent) {
		return Outcome{Duplicate: true}, nil
	}
	if err != nil {
		r.res.Release(ctx, Provider, ev.EventID())
		return Outcome{}, err
	}
	return out, nil
}

// HandleStatus applies a lifecycle transition: overwrite status/duration,
// merge metadata, accrue metered minutes for billable statuses, and flag
// missed calls for operator follow-up.
func (r *Reconciler) HandleStatus(ctx context.Context, ev CallStatusUpdated) (Outcome, error) {
	log := logger.From(ctx)

	if !r.res.Claim(ctx, Provider, ev.EventID()) {
		return Outcome{Duplicate: true}, nil
	}

	var out Outcome
	err := r.run(ctx, func(ctx context.Context, s Stores) error {
		seen, err := s.Ledger.SeenEvent(ctx, Provider, ev.EventID())
		if err != nil {
			return err
		}
		if seen {
			out.Duplicate = true
			return nil
		}

		// One generic entry per status update; doubles as the dedup witness.
		msg := fmt.Sprintf("call %s status %s", ev.ProviderCallRef, ev.Status)
		if err := s.Ledger.RecordEvent(ctx, ev.TenantID, ledger.CategoryTelephony, Provider, ev.EventID(), msg); err != nil {
			return err
		}

		applied, err := s.Calls.ApplyStatus(ctx, ev.TenantID, ev.ProviderCallRef, ev.Status, ev.DurationSeconds, ev.Extra)
		if err != nil {
			return err
		}
		out.Applied = applied
		if !applied {
			// Status update raced ahead of its create; keep the accrual and
			// follow-up behavior, drop only the row update.
			log.Warn("status update for unknown call",
				"tenant_id", ev.TenantID,
				"provider_call_ref", ev.ProviderCallRef,
				"status", ev.Status,
			)
		}

		if ev.Status.Billable() && ev.DurationSeconds > 0 {
			minutes := BillableMinutes(ev.DurationSeconds)
			ok, err := s.Subs.AddMeteredMinutes(ctx, ev.TenantID, minutes)
			if err != nil {
				return err
			}
			if ok {
				out.MinutesAccrued = minutes
			} else {
				log.Warn("metered minutes skipped: tenant has no subscription", "tenant_id", ev.TenantID)
			}
		}

		if ev.Status.Missed() {
			out.Missed = true
			missedMsg := fmt.Sprintf("Missed call from %s to %s (%s)", ev.From, ev.To, ev.Status)
			if err := s.Ledger.Log(ctx, ev.TenantID, ledger.CategoryTelephony, missedMsg); err != nil {
				return err
			}
			err := s.FollowUps.Append(ctx, notify.FollowUpMessage{
				ID:        uuid.NewString(),
				TenantID:  ev.TenantID,
				Direction: notify.DirectionSystem,
				Content:   fmt.Sprintf("Missed call follow-up required for %s", ev.From),
				Channel:   notify.ChannelSystem,
				CreatedAt: ev.OccurredAt,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateEvent) {
		return Outcome{Duplicate: true}, nil
	}
	if err != nil {
		r.res.Release(ctx, Provider, ev.EventID())
		return Outcome{}, err
	}
	return out, nil
}

// BillableMinutes converts a reported duration to whole billable minutes.
// Any connected call bills at least one minute.
func BillableMinutes(durationSeconds int) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	m := int64((durationSeconds + 59) / 60)
	if m < 1 {
		m = 1
	}
	return m
}
