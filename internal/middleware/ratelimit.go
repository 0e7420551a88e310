package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/ratelimit"
)

// RateLimitMiddleware gates inbound requests on the named limiter
// category, so agent callers hit a 429 before any tool work starts.
func RateLimitMiddleware(limiter *ratelimit.Limiter, category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(category) {
			c.Error(apperrors.NewRateLimit(category))
			c.Abort()
			return
		}
		c.Next()
	}
}
