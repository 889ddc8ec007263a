package tenant

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("tenant: not found")
	ErrInvalidArgument = errors.New("tenant: invalid argument")
)

// Store is the persistence contract for tenants.
type Store interface {
	Create(ctx context.Context, t Tenant) error
	FindByID(ctx context.Context, id string) (Tenant, error)
}

// SubscriptionStore is the persistence contract for subscriptions.
//
// Concurrency requirements (enforced by implementations):
// - AddMeteredMinutes is a single atomic increment, not read-modify-write.
// - ApplyByCustomerRef updates all matching rows in one statement.
type SubscriptionStore interface {
	Create(ctx context.Context, s Subscription) error
	FindByTenant(ctx context.Context, tenantID string) (Subscription, error)

	// AddMeteredMinutes accrues billable minutes for a tenant.
	// Returns false when the tenant has no subscription row.
	AddMeteredMinutes(ctx context.Context, tenantID string, minutes int64) (bool, error)

	// ApplyByCustomerRef applies a provider-driven update to every
	// subscription linked to the given provider customer reference
	// (expected to be exactly one). Returns the number of rows updated.
	ApplyByCustomerRef(ctx context.Context, customerRef string, upd ProviderUpdate) (int64, error)

	// LinkCustomerRef records the provider customer reference after checkout.
	LinkCustomerRef(ctx context.Context, tenantID, customerRef string) error
}
