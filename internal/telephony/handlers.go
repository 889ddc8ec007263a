package telephony

import (
	"errors"
	"net/http"
	"time"

	"frontdesk-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandlers converts provider callbacks to internal events and
// delegates to the reconciler.
//
// Failure mapping:
// - bad/missing signature      -> 403, payload never processed
// - auth token not configured  -> 400, distinct from an attack
// - missing tenant / bad form  -> 400, before any side effect
// - reconciliation failure     -> 500, provider retries the delivery

type WebhookHandlers struct {
	Verifier   SignatureVerifier
	Reconciler *Reconciler

	// PublicBaseURL overrides header-based URL reconstruction for
	// signature checks when TLS terminates upstream.
	PublicBaseURL string

	Now func() time.Time
}

const ackMessage = "Call received. An agent will respond shortly."

// HandleVoice processes the "call initiated" callback and answers with TwiML.
func (h WebhookHandlers) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	form, tenantID, ok := h.authenticate(c)
	if !ok {
		return
	}

	initiated, err := form.Initiated(tenantID, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	out, err := h.Reconciler.HandleInitiated(c.Request.Context(), initiated)
	if err != nil {
		log.Error("call initiation failed", "err", err, "provider_call_ref", initiated.ProviderCallRef)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	if out.Duplicate {
		log.Info("duplicate voice webhook", "provider_call_ref", initiated.ProviderCallRef)
	}

	twiml, err := RenderAck(ackMessage)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

// HandleStatus processes lifecycle-progress callbacks.
func (h WebhookHandlers) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	form, tenantID, ok := h.authenticate(c)
	if !ok {
		return
	}

	update, err := form.StatusUpdate(tenantID, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	out, err := h.Reconciler.HandleStatus(c.Request.Context(), update)
	if err != nil {
		log.Error("status reconciliation failed", "err", err, "provider_call_ref", update.ProviderCallRef)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	if out.Duplicate {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "duplicate": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authenticate parses the form, verifies the provider signature, and resolves
// the tenant. It writes the error response itself when verification fails.
func (h WebhookHandlers) authenticate(c *gin.Context) (CallbackForm, string, bool) {
	log := logger.FromGin(c)

	form, err := ParseCallbackForm(c.Request)
	if err != nil {
		log.Warn("webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return CallbackForm{}, "", false
	}

	url := ResolveRequestURL(c.Request, h.PublicBaseURL)
	if err := h.Verifier.Verify(url, form.Fields, c.GetHeader(SignatureHeader)); err != nil {
		if errors.Is(err, ErrSignatureNotConfigured) {
			log.Error("twilio auth token not configured")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "webhook not configured"})
			return CallbackForm{}, "", false
		}
		log.Warn("twilio signature rejected", "url", url)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return CallbackForm{}, "", false
	}

	tenantID, err := ResolveTenantID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return CallbackForm{}, "", false
	}
	return form, tenantID, true
}

func (h WebhookHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
