package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
)

const HeaderGatewayKey = "X-Gateway-Key"

// AuthMiddleware checks the gateway API key. When auth.require_api_key
// is false (local development) requests pass through unauthenticated.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Auth.RequireAPIKey {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderGatewayKey)
		if key == "" {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing API key", nil))
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Auth.APIKey)) != 1 {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid API key", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
