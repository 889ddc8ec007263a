package tenant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"frontdesk-platform/pkg/utils"
)

// NOTE: This repository assumes the following tables exist:
// - tenants
// - subscriptions, with UNIQUE (tenant_id)
//
// metered_minutes is mutated only via the increment statement below so the
// monotonic counter survives concurrent redelivery.

type PostgresStore struct {
	db utils.DBTX
}

func NewPostgresStore(db utils.DBTX) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Create(ctx context.Context, t Tenant) error {
	if t.ID == "" || t.Name == "" {
		return ErrInvalidArgument
	}
	const q = `
INSERT INTO tenants (id, name, created_at)
VALUES ($1, $2, $3)
`
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, q, t.ID, t.Name, createdAt)
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Tenant, error) {
	if id == "" {
		return Tenant{}, ErrInvalidArgument
	}
	const q = `
SELECT id, name, created_at
FROM tenants
WHERE id = $1
`
	var t Tenant
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

type PostgresSubscriptionStore struct {
	db utils.DBTX
}

func NewPostgresSubscriptionStore(db utils.DBTX) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

func (s *PostgresSubscriptionStore) Create(ctx context.Context, sub Subscription) error {
	if sub.ID == "" || sub.TenantID == "" {
		return ErrInvalidArgument
	}
	const q = `
INSERT INTO subscriptions (
  id, tenant_id, tier, status, metered_minutes,
  provider_customer_ref, provider_subscription_ref, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	now := time.Now().UTC()
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := sub.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	_, err := s.db.ExecContext(ctx, q,
		sub.ID,
		sub.TenantID,
		sub.Tier,
		sub.Status,
		sub.MeteredMinutes,
		nullIfEmpty(sub.ProviderCustomerRef),
		nullIfEmpty(sub.ProviderSubscriptionRef),
		createdAt,
		updatedAt,
	)
	return err
}

func (s *PostgresSubscriptionStore) FindByTenant(ctx context.Context, tenantID string) (Subscription, error) {
	if tenantID == "" {
		return Subscription{}, ErrInvalidArgument
	}
	const q = `
SELECT id, tenant_id, tier, status, metered_minutes,
       COALESCE(provider_customer_ref, ''), COALESCE(provider_subscription_ref, ''),
       created_at, updated_at
FROM subscriptions
WHERE tenant_id = $1
`
	var sub Subscription
	if err := s.db.QueryRowContext(ctx, q, tenantID).Scan(
		&sub.ID,
		&sub.TenantID,
		&sub.Tier,
		&sub.Status,
		&sub.MeteredMinutes,
		&sub.ProviderCustomerRef,
		&sub.ProviderSubscriptionRef,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}
	return sub, nil
}

func (s *PostgresSubscriptionStore) AddMeteredMinutes(ctx context.Context, tenantID string, minutes int64) (bool, error) {
	if tenantID == "" || minutes <= 0 {
		return false, ErrInvalidArgument
	}
	// Single-statement increment; the counter never goes through the app layer.
	const q = `
UPDATE subscriptions
SET metered_minutes = metered_minutes + $2, updated_at = $3
WHERE tenant_id = $1
`
	res, err := s.db.ExecContext(ctx, q, tenantID, minutes, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresSubscriptionStore) ApplyByCustomerRef(ctx context.Context, customerRef string, upd ProviderUpdate) (int64, error) {
	if customerRef == "" {
		return 0, ErrInvalidArgument
	}
	// COALESCE keeps the stored value when the corresponding field is nil,
	// so unknown provider statuses/prices never corrupt local state.
	const q = `
UPDATE subscriptions
SET tier   = COALESCE($2, tier),
    status = COALESCE($3, status),
    provider_subscription_ref = COALESCE($4, provider_subscription_ref),
    updated_at = $5
WHERE provider_customer_ref = $1
`
	res, err := s.db.ExecContext(ctx, q,
		customerRef,
		tierOrNil(upd.Tier),
		statusOrNil(upd.Status),
		upd.SubscriptionRef,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresSubscriptionStore) LinkCustomerRef(ctx context.Context, tenantID, customerRef string) error {
	if tenantID == "" || customerRef == "" {
		return ErrInvalidArgument
	}
	const q = `
UPDATE subscriptions
SET provider_customer_ref = $2, updated_at = $3
WHERE tenant_id = $1
`
	res, err := s.db.ExecContext(ctx, q, tenantID, customerRef, time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func tierOrNil(t *Tier) any {
	if t == nil {
		return nil
	}
	return string(*t)
}

func statusOrNil(st *SubscriptionStatus) any {
	if st == nil {
		return nil
	}
	return string(*st)
}
