package billing

import (
	"errors"
	"net/http"
	"strings"

	"frontdesk-platform/internal/auth"
	"frontdesk-platform/internal/tenant"
	"frontdesk-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups billing HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
//
// Webhook failure mapping:
// - secret not configured        -> 400, operator misconfiguration
// - missing/invalid signature    -> 400, payload never processed
// - malformed payload            -> 400, before any side effect
// - reconciliation failure       -> 500, provider retries the delivery

type Handlers struct {
	Verifier   SignatureVerifier
	Reconciler *Reconciler
	Client     *Client
	Portal     *PortalService
}

// HandleWebhook ingests payment-provider deliveries.
func (h Handlers) HandleWebhook(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.Verifier.Verify(body, c.GetHeader(SignatureHeader)); err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			log.Error("billing webhook secret not configured")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "webhook not configured"})
		case errors.Is(err, ErrTimestampExpired):
			log.Warn("billing webhook outside replay window")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "stale signature"})
		default:
			log.Warn("billing webhook signature rejected")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		}
		return
	}

	ev, err := ParseEvent(body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	out, err := h.Reconciler.HandleEvent(c.Request.Context(), ev)
	if err != nil {
		log.Error("billing reconciliation failed", "err", err, "event_id", ev.EventID, "type", ev.RawType)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	if out.Duplicate {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

type checkoutRequest struct {
	Tier       string `json:"tier"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// HandleCheckout creates a hosted checkout session for the acting tenant.
func (h Handlers) HandleCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	tier := tenant.Tier(strings.ToUpper(strings.TrimSpace(req.Tier)))
	if !tenant.ValidTier(tier) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tier must be one of STARTER, PROFESSIONAL, ENTERPRISE"})
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "successUrl and cancelUrl required"})
		return
	}

	tenantID, err := auth.TenantID(c.Request.Context())
	if err != nil || tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant required"})
		return
	}

	url, err := h.Client.CheckoutURL(c.Request.Context(), tenantID, tier, req.SuccessURL, req.CancelURL)
	if err != nil {
		if errors.Is(err, ErrTierNotPriced) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tier not available"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "checkout unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type portalRequest struct {
	CustomerID string `json:"customerId"`
	ReturnURL  string `json:"returnUrl"`
}

// HandlePortal opens a billing-management session. The customer reference is
// authorized against the acting tenant's stored reference before the provider
// is contacted; both guard failures surface as one 403.
func (h Handlers) HandlePortal(c *gin.Context) {
	log := logger.FromGin(c)

	var req portalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CustomerID == "" || req.ReturnURL == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "customerId and returnUrl required"})
		return
	}

	url, err := h.Portal.OpenPortal(c.Request.Context(), req.CustomerID, req.ReturnURL)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrNotLinked):
			log.Warn("portal denied: customer not linked")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "authorization denied"})
		case errors.Is(err, tenant.ErrCustomerMismatch):
			log.Warn("portal denied: customer mismatch", "customer_ref", req.CustomerID)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "authorization denied"})
		case errors.Is(err, tenant.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "authorization denied"})
		default:
			log.Error("portal session failed", "err", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "portal unavailable"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
