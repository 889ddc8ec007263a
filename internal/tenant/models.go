package tenant

import "time"

// Tenant is the root of all data partitioning. Every other entity in the
// system carries a tenant_id and every query must filter on it.
type Tenant struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Tier string

const (
	TierStarter      Tier = "STARTER"
	TierProfessional Tier = "PROFESSIONAL"
	TierEnterprise   Tier = "ENTERPRISE"
)

func ValidTier(t Tier) bool {
	switch t {
	case TierStarter, TierProfessional, TierEnterprise:
		return true
	default:
		return false
	}
}

type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "ACTIVE"
	StatusPastDue  SubscriptionStatus = "PAST_DUE"
	StatusCanceled SubscriptionStatus = "CANCELED"
)

// Subscription is the single billing record of a tenant.
//
// Invariants:
// - At most one row per tenant; created at provisioning, never deleted.
// - MeteredMinutes only grows, and only via an atomic increment (concurrent
//   status callbacks for overlapping calls must not lose updates).
// - Mutated only by the billing reconciler or the checkout flow.
type Subscription struct {
	ID       string             `json:"id" db:"id"`
	TenantID string             `json:"tenant_id" db:"tenant_id"`
	Tier     Tier               `json:"tier" db:"tier"`
	Status   SubscriptionStatus `json:"status" db:"status"`

	MeteredMinutes int64 `json:"metered_minutes" db:"metered_minutes"`

	// ProviderCustomerRef links this tenant to the payment provider's
	// customer object. Empty until checkout completes; billing webhooks
	// resolve their tenant through this value.
	ProviderCustomerRef     string `json:"provider_customer_ref,omitempty" db:"provider_customer_ref"`
	ProviderSubscriptionRef string `json:"provider_subscription_ref,omitempty" db:"provider_subscription_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderUpdate captures the fields a billing webhook may change.
// Nil pointers leave the stored value untouched; unknown provider statuses or
// price references must never corrupt local state.
type ProviderUpdate struct {
	Tier            *Tier
	Status          *SubscriptionStatus
	SubscriptionRef *string
}
