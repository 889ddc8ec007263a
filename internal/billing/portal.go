package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"frontdesk-platform/internal/ledger"
	"frontdesk-platform/internal/tenant"
	"frontdesk-platform/pkg/logger"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

var (
	ErrTierNotPriced = errors.New("billing: no price configured for tier")
	ErrProviderDown  = errors.New("billing: provider session creation failed")
)

// Client wraps the payment provider's hosted-session APIs. The session
// constructors are injected as function fields so tests substitute them
// without touching shared state.
//
// With no secret key configured the client runs in demo mode: checkout and
// portal return synthetic redirect URLs instead of calling out. That mirrors
// local development without a provider account.
type Client struct {
	secretKey string
	prices    PriceTable

	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

func NewClient(secretKey string, prices PriceTable) *Client {
	stripe.Key = strings.TrimSpace(secretKey)
	return &Client{
		secretKey:             strings.TrimSpace(secretKey),
		prices:                prices,
		createCheckoutSession: checkoutsession.New,
		createPortalSession:   portalsession.New,
	}
}

// Demo reports whether the client has no provider credentials.
func (c *Client) Demo() bool { return c.secretKey == "" }

// CheckoutURL creates a hosted subscription checkout session for a tier and
// returns the redirect URL.
func (c *Client) CheckoutURL(ctx context.Context, tenantID string, tier tenant.Tier, successURL, cancelURL string) (string, error) {
	if c.Demo() {
		return fmt.Sprintf("%s?tenantId=%s&tier=%s&mode=demo", successURL, tenantID, tier), nil
	}

	price, ok := c.prices.PriceFor(tier)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTierNotPriced, tier)
	}

	session, err := c.createCheckoutSession(&stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(price),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{"tenantId": tenantID},
	})
	if err != nil || session == nil || session.URL == "" {
		logger.From(ctx).Error("checkout session creation failed", "err", err, "tenant_id", tenantID)
		return "", ErrProviderDown
	}
	return session.URL, nil
}

// PortalURL creates a hosted billing-management session for an already
// verified provider customer.
func (c *Client) PortalURL(ctx context.Context, customerRef, returnURL string) (string, error) {
	if c.Demo() {
		return returnURL + "?portal=disabled", nil
	}

	session, err := c.createPortalSession(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil || session == nil || session.URL == "" {
		logger.From(ctx).Error("portal session creation failed", "err", err, "customer_ref", customerRef)
		return "", ErrProviderDown
	}
	return session.URL, nil
}

// PortalService opens billing-management sessions on behalf of authenticated
// tenants. Every request passes the customer-reference guard before the
// provider is contacted.
type PortalService struct {
	Client *Client
	Subs   tenant.SubscriptionStore
	Ledger *ledger.Service
}

// OpenPortal authorizes the supplied customer reference against the acting
// tenant's subscription and returns the hosted session URL.
func (s *PortalService) OpenPortal(ctx context.Context, customerRef, returnURL string) (string, error) {
	sub, err := tenant.AuthorizeCustomer(ctx, s.Subs, customerRef)
	if err != nil {
		return "", err
	}

	url, err := s.Client.PortalURL(ctx, customerRef, returnURL)
	if err != nil {
		return "", err
	}

	entry := fmt.Sprintf("Generated billing portal session for customer %s", customerRef)
	if err := s.Ledger.Log(ctx, sub.TenantID, ledger.CategoryBilling, entry); err != nil {
		return "", err
	}
	return url, nil
}
