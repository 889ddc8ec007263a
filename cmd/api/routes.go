package main

import (
	"database/sql"
	"time"

	"frontdesk-platform/internal/auth"
	"frontdesk-platform/internal/billing"
	"frontdesk-platform/internal/httpapi"
	"frontdesk-platform/internal/telephony"
	"frontdesk-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// appHandlers bundles every wired handler group.
type appHandlers struct {
	telephony telephony.WebhookHandlers
	billing   billing.Handlers
	api       httpapi.Handlers
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h appHandlers, authMW gin.HandlerFunc, db *sql.DB) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if db != nil {
			if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
				c.JSON(503, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks. Public routes: each handler authenticates the
	// delivery with the provider's own signature scheme before any side
	// effect.
	r.POST("/webhooks/telephony/voice", h.telephony.HandleVoice)
	r.POST("/webhooks/telephony/status", h.telephony.HandleStatus)
	r.POST("/webhooks/billing", h.billing.HandleWebhook)

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.api.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(auth.RequireTenant())
	{
		v1.GET("/me", func(c *gin.Context) {
			uid, _ := auth.UserID(c.Request.Context())
			tid, _ := auth.TenantID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"user_id": uid, "tenant_id": tid, "role": role})
		})

		v1.GET("/dashboard/overview", h.api.Overview)
		v1.GET("/status", h.api.Status)

		v1.POST("/billing/checkout", h.billing.HandleCheckout)
		v1.POST("/billing/portal", h.billing.HandlePortal)
	}
}
