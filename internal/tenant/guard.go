package tenant

import (
	"context"
	"errors"

	"frontdesk-platform/internal/auth"
)

// Both guard failures surface externally as one authorization-denied class;
// keep them distinct internally so operators can tell "never checked out"
// from a possible probing attempt.
var (
	ErrNotLinked        = errors.New("tenant: customer not linked")
	ErrCustomerMismatch = errors.New("tenant: customer mismatch")
)

// AuthorizeCustomer verifies that a privileged billing operation is acting on
// the caller's own payment-provider customer.
//
// The acting tenant comes from the authenticated session in ctx, never from
// request data. The supplied customer reference must equal the one stored on
// that tenant's subscription; a reference that is valid for some other tenant
// is still a mismatch.
func AuthorizeCustomer(ctx context.Context, subs SubscriptionStore, customerRef string) (Subscription, error) {
	if customerRef == "" {
		return Subscription{}, ErrInvalidArgument
	}

	tenantID, err := auth.TenantID(ctx)
	if err != nil || tenantID == "" {
		return Subscription{}, ErrNotFound
	}

	sub, err := subs.FindByTenant(ctx, tenantID)
	if err != nil {
		return Subscription{}, err
	}
	if sub.ProviderCustomerRef == "" {
		return Subscription{}, ErrNotLinked
	}
	if sub.ProviderCustomerRef != customerRef {
		return Subscription{}, ErrCustomerMismatch
	}
	return sub, nil
}
