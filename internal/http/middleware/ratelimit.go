package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/ratelimit"
	log "github.com/sirupsen/logrus"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// Allower is the subset of ratelimit.Manager used by the middleware.
type Allower interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// RateLimitOptions tunes the middleware.
type RateLimitOptions struct {
	IPv6PrefixLen int
	ExemptPaths   []string
	NowFn         func() time.Time
}

// RateLimit enforces the per-client request budget. The caller is keyed by
// API key, then user, then client address. Backend errors fail open.
func RateLimit(limiter Allower, opts RateLimitOptions) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(opts.ExemptPaths))
	for _, path := range opts.ExemptPaths {
		exempt[path] = struct{}{}
	}
	nowFn := opts.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	prefixLen := opts.IPv6PrefixLen
	if prefixLen <= 0 {
		prefixLen = ratelimit.DefaultIPv6PrefixLen
	}

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if _, ok := exempt[c.FullPath()]; ok {
			c.Next()
			return
		}
		key := limiterKey(c, prefixLen)
		if key == "" {
			c.Next()
			return
		}

		result, errAllow := limiter.Allow(c.Request.Context(), key)
		if errAllow != nil {
			log.WithError(errAllow).WithField("key", key).Warn("rate limit: check failed, allowing request")
			c.Next()
			return
		}
		if result.Limit > 0 {
			c.Header(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
			c.Header(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
			if !result.Reset.IsZero() {
				c.Header(HeaderRateLimitReset, strconv.FormatInt(result.Reset.Unix(), 10))
			}
		}
		if !result.Allowed {
			c.Header(HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(result.Reset, nowFn())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func limiterKey(c *gin.Context, prefixLen int) string {
	if keyID, ok := CurrentAPIKeyID(c); ok && keyID > 0 {
		return ratelimit.KeyFor(ratelimit.ScopeAPIKey, strconv.FormatUint(keyID, 10))
	}
	if user, ok := CurrentUser(c); ok {
		return ratelimit.KeyForUser(user.ID)
	}
	return ratelimit.KeyFor(ratelimit.ScopeIP, ratelimit.ClientIdentifier(strings.TrimSpace(c.ClientIP()), prefixLen))
}

func retryAfterSeconds(reset, now time.Time) int {
	if reset.IsZero() {
		return 1
	}
	seconds := int(math.Ceil(reset.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
