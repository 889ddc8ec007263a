package billing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"frontdesk-platform/internal/auth"
	"frontdesk-platform/internal/ledger"
	"frontdesk-platform/internal/tenant"

	stripe "github.com/stripe/stripe-go/v82"
)

func stubbedClient(prices PriceTable) *Client {
	c := &Client{secretKey: "sk_test_123", prices: prices}
	c.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{URL: "https://checkout.example.com/s/abc"}, nil
	}
	c.createPortalSession = func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
		return &stripe.BillingPortalSession{URL: "https://portal.example.com/p/xyz"}, nil
	}
	return c
}

func TestCheckoutURLUsesConfiguredPrice(t *testing.T) {
	var gotParams *stripe.CheckoutSessionParams
	c := stubbedClient(testPriceTable())
	c.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		gotParams = params
		return &stripe.CheckoutSession{URL: "https://checkout.example.com/s/abc"}, nil
	}

	url, err := c.CheckoutURL(context.Background(), "tenant-1", tenant.TierProfessional,
		"https://app.example.com/ok", "https://app.example.com/cancel")
	if err != nil {
		t.Fatalf("CheckoutURL() error: %v", err)
	}
	if url != "https://checkout.example.com/s/abc" {
		t.Fatalf("url = %q", url)
	}
	if len(gotParams.LineItems) != 1 || *gotParams.LineItems[0].Price != "price_pro" {
		t.Fatalf("params must carry the mapped price, got %+v", gotParams.LineItems)
	}
	if gotParams.Metadata["tenantId"] != "tenant-1" {
		t.Fatal("checkout session must carry the tenant in metadata")
	}
}

func TestCheckoutURLUnpricedTier(t *testing.T) {
	c := stubbedClient(PriceTable{})
	_, err := c.CheckoutURL(context.Background(), "tenant-1", tenant.TierStarter, "https://s", "https://c")
	if !errors.Is(err, ErrTierNotPriced) {
		t.Fatalf("CheckoutURL() = %v, want ErrTierNotPriced", err)
	}
}

func TestDemoModeSkipsProvider(t *testing.T) {
	c := &Client{prices: testPriceTable()} // no key, no session funcs: must not be called

	url, err := c.CheckoutURL(context.Background(), "tenant-1", tenant.TierStarter, "https://s", "https://c")
	if err != nil {
		t.Fatalf("demo checkout: %v", err)
	}
	if !strings.Contains(url, "mode=demo") {
		t.Fatalf("demo checkout url = %q", url)
	}

	url, err = c.PortalURL(context.Background(), "cus_1", "https://r")
	if err != nil {
		t.Fatalf("demo portal: %v", err)
	}
	if !strings.Contains(url, "portal=disabled") {
		t.Fatalf("demo portal url = %q", url)
	}
}

func newPortalService(t *testing.T) (*PortalService, *tenant.MemorySubscriptionStore, *ledger.MemoryRepo) {
	t.Helper()
	subs := tenant.NewMemorySubscriptionStore()
	repo := ledger.NewMemoryRepo()
	svc := &PortalService{
		Client: stubbedClient(testPriceTable()),
		Subs:   subs,
		Ledger: ledger.NewService(repo),
	}
	return svc, subs, repo
}

func identityCtx(tenantID string) context.Context {
	return auth.WithIdentity(context.Background(), "user-1", tenantID, "admin")
}

func TestOpenPortalAuthorized(t *testing.T) {
	svc, subs, repo := newPortalService(t)
	if err := subs.Create(context.Background(), tenant.Subscription{
		ID: "sub-1", TenantID: "tenant-1", Tier: tenant.TierStarter,
		Status: tenant.StatusActive, ProviderCustomerRef: "cus_1",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	url, err := svc.OpenPortal(identityCtx("tenant-1"), "cus_1", "https://app.example.com/billing")
	if err != nil {
		t.Fatalf("OpenPortal() error: %v", err)
	}
	if url != "https://portal.example.com/p/xyz" {
		t.Fatalf("url = %q", url)
	}

	entries := repo.Entries()
	if len(entries) != 1 || entries[0].TenantID != "tenant-1" || entries[0].Category != ledger.CategoryBilling {
		t.Fatalf("want one billing ledger entry, got %+v", entries)
	}
	if !strings.Contains(entries[0].Message, "cus_1") {
		t.Fatalf("entry must name the customer: %q", entries[0].Message)
	}
}

func TestOpenPortalGuardRejections(t *testing.T) {
	svc, subs, repo := newPortalService(t)
	ctx := context.Background()
	if err := subs.Create(ctx, tenant.Subscription{
		ID: "sub-1", TenantID: "tenant-1", Tier: tenant.TierStarter,
		Status: tenant.StatusActive, ProviderCustomerRef: "cus_1",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// A second tenant whose customer ref the first tenant will try to use.
	if err := subs.Create(ctx, tenant.Subscription{
		ID: "sub-2", TenantID: "tenant-2", Tier: tenant.TierStarter,
		Status: tenant.StatusActive, ProviderCustomerRef: "cus_2",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// And one never linked to a customer.
	if err := subs.Create(ctx, tenant.Subscription{
		ID: "sub-3", TenantID: "tenant-3", Tier: tenant.TierStarter, Status: tenant.StatusActive,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.OpenPortal(identityCtx("tenant-1"), "cus_2", "https://r"); !errors.Is(err, tenant.ErrCustomerMismatch) {
		t.Fatalf("cross-tenant ref: %v, want ErrCustomerMismatch", err)
	}
	if _, err := svc.OpenPortal(identityCtx("tenant-3"), "cus_1", "https://r"); !errors.Is(err, tenant.ErrNotLinked) {
		t.Fatalf("unlinked tenant: %v, want ErrNotLinked", err)
	}
	if _, err := svc.OpenPortal(context.Background(), "cus_1", "https://r"); err == nil {
		t.Fatal("missing session identity must be rejected")
	}
	if len(repo.Entries()) != 0 {
		t.Fatal("rejected portal requests must not write ledger entries")
	}
}
