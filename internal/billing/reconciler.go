package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"frontdesk-platform/internal/ledger"
	"frontdesk-platform/internal/tenant"
	"frontdesk-platform/pkg/logger"
	"frontdesk-platform/pkg/utils"
)

// Stores bundles the persistence surfaces a billing event touches.
type Stores struct {
	Subs   tenant.SubscriptionStore
	Ledger *ledger.Service
}

// RunFunc executes one reconciliation unit of work, same contract as the
// telephony runner: the Postgres runner wraps fn in a transaction so the
// ledger claim and the subscription update commit or roll back together.
type RunFunc func(ctx context.Context, fn func(ctx context.Context, s Stores) error) error

// MemoryRunner runs reconciliation directly against fixed stores.
func MemoryRunner(s Stores) RunFunc {
	return func(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
		return fn(ctx, s)
	}
}

// PostgresRunner builds tx-scoped stores for each reconciliation, so the
// ledger claim and the subscription update share one transaction.
func PostgresRunner(db *sql.DB) RunFunc {
	return func(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
		return utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, Stores{
				Subs:   tenant.NewPostgresSubscriptionStore(tx),
				Ledger: ledger.NewService(ledger.NewPostgresRepo(tx)),
			})
		})
	}
}

// Outcome reports what a delivery did.
type Outcome struct {
	Duplicate bool
	Ignored   bool // unhandled event kind, acknowledged without mutation
	Unmatched bool // no subscription carries the customer ref
	Matched   int64
}

// Reconciler folds payment-provider subscription events into local
// subscription state.
//
// The owning tenant is resolved by customer reference, never taken from the
// payload directly. Zero matches is acknowledged as a no-op so the provider
// does not retry an event that will never resolve; it still leaves a
// distinguishable ledger trail for operators chasing sync gaps.
type Reconciler struct {
	run    RunFunc
	prices PriceTable
	res    *ledger.Reservation
}

func NewReconciler(run RunFunc, prices PriceTable) *Reconciler {
	return &Reconciler{run: run, prices: prices}
}

// WithReservation adds the Redis fast path for duplicate suppression.
// Optional; the ledger constraint alone is already correct.
func (r *Reconciler) WithReservation(res *ledger.Reservation) *Reconciler {
	r.res = res
	return r
}

// HandleEvent applies one normalized webhook event.
func (r *Reconciler) HandleEvent(ctx context.Context, ev Event) (Outcome, error) {
	log := logger.From(ctx)

	if ev.Kind == KindUnhandled {
		// Acknowledged without mutation and without a ledger entry; these
		// arrive for every event type the endpoint is subscribed to.
		log.Debug("unhandled billing event", "type", ev.RawType, "event_id", ev.EventID)
		return Outcome{Ignored: true}, nil
	}

	if !r.res.Claim(ctx, Provider, ev.EventID) {
		return Outcome{Duplicate: true}, nil
	}

	var out Outcome
	err := r.run(ctx, func(ctx context.Context, s Stores) error {
		// Read-only check first: a redelivery must not trip the unique
		// constraint and abort the transaction.
		seen, err := s.Ledger.SeenEvent(ctx, Provider, ev.EventID)
		if err != nil {
			return err
		}
		if seen {
			out.Duplicate = true
			return nil
		}

		// Tenant is unknown until the customer ref matches, so the dedup
		// witness is recorded provider-global.
		msg := fmt.Sprintf("%s for customer %s", ev.RawType, ev.CustomerRef)
		if err := s.Ledger.RecordEvent(ctx, "", ledger.CategoryBilling, Provider, ev.EventID, msg); err != nil {
			return err
		}

		upd := r.update(ev)
		n, err := s.Subs.ApplyByCustomerRef(ctx, ev.CustomerRef, upd)
		if err != nil {
			return err
		}
		out.Matched = n
		if n == 0 {
			out.Unmatched = true
			log.Warn("billing event matched no subscription",
				"event_id", ev.EventID,
				"type", ev.RawType,
				"customer_ref", ev.CustomerRef,
			)
			unmatched := fmt.Sprintf("No subscription matched customer %s for %s", ev.CustomerRef, ev.RawType)
			return s.Ledger.Log(ctx, "", ledger.CategoryBillingUnmatched, unmatched)
		}
		if n > 1 {
			log.Warn("billing event matched multiple subscriptions", "customer_ref", ev.CustomerRef, "matched", n)
		}
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateEvent) {
		return Outcome{Duplicate: true}, nil
	}
	if err != nil {
		r.res.Release(ctx, Provider, ev.EventID)
		return Outcome{}, err
	}
	return out, nil
}

// update translates the event into a partial subscription update. Fields the
// event cannot resolve stay nil and leave stored values untouched.
func (r *Reconciler) update(ev Event) tenant.ProviderUpdate {
	var upd tenant.ProviderUpdate

	if ev.SubscriptionRef != "" {
		ref := ev.SubscriptionRef
		upd.SubscriptionRef = &ref
	}
	if tier, ok := r.prices.Tier(ev.PriceRef); ok {
		upd.Tier = &tier
	}

	if ev.Kind == KindSubscriptionDeleted {
		// Deletion cancels regardless of what status the payload reports.
		st := tenant.StatusCanceled
		upd.Status = &st
		return upd
	}
	if st, ok := MapStatus(ev.RawStatus); ok {
		upd.Status = &st
	}
	return upd
}
