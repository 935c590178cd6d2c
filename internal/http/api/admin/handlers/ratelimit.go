package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/ratelimit"
	log "github.com/sirupsen/logrus"
)

// Resetter clears a limiter key.
type Resetter interface {
	Reset(ctx context.Context, key string) error
}

// RateLimitHandler exposes administrative limiter overrides.
type RateLimitHandler struct {
	limiter       Resetter
	ipv6PrefixLen int
}

// NewRateLimitHandler constructs a RateLimitHandler.
func NewRateLimitHandler(limiter Resetter, ipv6PrefixLen int) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter, ipv6PrefixLen: ipv6PrefixLen}
}

// resetRateLimitRequest names the caller whose history is cleared.
type resetRateLimitRequest struct {
	Identifier string `json:"identifier"` // Client address, user ID or API key ID.
	Scope      string `json:"scope"`      // ip (default), user or api_key.
}

// Reset clears the request history of one identifier.
func (h *RateLimitHandler) Reset(c *gin.Context) {
	var body resetRateLimitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	identifier := strings.TrimSpace(body.Identifier)
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier is required"})
		return
	}
	scope := ratelimit.ScopeIP
	if strings.TrimSpace(body.Scope) != "" {
		scope = ratelimit.ParseScope(body.Scope)
	}
	if scope == ratelimit.ScopeIP {
		identifier = ratelimit.ClientIdentifier(identifier, h.ipv6PrefixLen)
	}
	key := ratelimit.KeyFor(scope, identifier)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope"})
		return
	}
	if errReset := h.limiter.Reset(c.Request.Context(), key); errReset != nil {
		log.WithError(errReset).WithField("key", key).Warn("rate limit: reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "key": key})
}
