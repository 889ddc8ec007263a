package httpapi

import (
	"errors"
	"net/http"
	"time"

	"frontdesk-platform/internal/auth"
	"frontdesk-platform/internal/dashboard"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Dashboard *dashboard.Service
}

// --- Auth ---

type loginRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, tenant_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Dashboard ---

func (h Handlers) Overview(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	out, err := h.Dashboard.Overview(c.Request.Context())
	if err != nil {
		if errors.Is(err, dashboard.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "overview failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) Status(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	out, err := h.Dashboard.Status(c.Request.Context())
	if err != nil {
		if errors.Is(err, dashboard.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}
