package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/model"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
)

// ReadOnlyMiddleware blocks mutating tools when read-only mode is on.
// GET traffic always passes; dispatch requests are peeked to see which
// tool they name, and only tools registered as read-only go through.
func ReadOnlyMiddleware(enabled bool, d *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if c.FullPath() != "/v1/tools/dispatch" {
			c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
			return
		}

		// Peek the body for the tool name, then restore it for binding.
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		var req model.DispatchRequest
		if err := json.Unmarshal(bodyBytes, &req); err == nil {
			if tool := d.Lookup(req.Tool); tool != nil && tool.ReadOnly {
				c.Next()
				return
			}
		}

		c.Error(apperrors.New(apperrors.ErrReadOnly,
			"read-only mode enabled; only read-only tools may be dispatched", nil))
		c.Abort()
	}
}
