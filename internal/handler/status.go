package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/safety"
	"github.com/agentgate/agentgate/internal/stream"
)

type StatusHandler struct {
	stream   *stream.Subscriber
	exposure safety.ExposureStore
}

func NewStatusHandler(sub *stream.Subscriber, exposure safety.ExposureStore) *StatusHandler {
	return &StatusHandler{stream: sub, exposure: exposure}
}

// StreamStatus handles GET /v1/stream/status.
func (h *StatusHandler) StreamStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.stream.Status())
}

// Exposure handles GET /v1/exposure.
func (h *StatusHandler) Exposure(c *gin.Context) {
	snap, err := h.exposure.Snapshot(c.Request.Context())
	if err != nil {
		c.Error(apperrors.Wrap(err))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
