package billing

import (
	"frontdesk-platform/internal/config"
	"frontdesk-platform/internal/tenant"
)

// PriceTable maps the payment provider's price references to internal tiers.
// Static configuration; an unknown price reference maps to nothing and leaves
// the stored tier untouched.
type PriceTable map[string]tenant.Tier

func NewPriceTable(cfg config.StripeConfig) PriceTable {
	t := make(PriceTable, 3)
	if cfg.StarterPriceID != "" {
		t[cfg.StarterPriceID] = tenant.TierStarter
	}
	if cfg.ProfessionalPriceID != "" {
		t[cfg.ProfessionalPriceID] = tenant.TierProfessional
	}
	if cfg.EnterprisePriceID != "" {
		t[cfg.EnterprisePriceID] = tenant.TierEnterprise
	}
	return t
}

// Tier resolves a price reference. The second return is false for unknown or
// empty references.
func (t PriceTable) Tier(priceRef string) (tenant.Tier, bool) {
	tier, ok := t[priceRef]
	return tier, ok
}

// PriceFor is the reverse lookup used by checkout.
func (t PriceTable) PriceFor(tier tenant.Tier) (string, bool) {
	for price, mapped := range t {
		if mapped == tier {
			return price, true
		}
	}
	return "", false
}

// MapStatus converts the provider's raw subscription status to the internal
// enum. Unknown values return false and leave the stored status untouched
// rather than corrupting it.
func MapStatus(raw string) (tenant.SubscriptionStatus, bool) {
	switch raw {
	case "active":
		return tenant.StatusActive, true
	case "past_due":
		return tenant.StatusPastDue, true
	case "canceled", "cancelled":
		return tenant.StatusCanceled, true
	default:
		return "", false
	}
}
