package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/service"
)

type AuditHandler struct {
	audit *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: svc}
}

// List handles GET /v1/audit. Supported query parameters: tool, limit,
// from, to (RFC 3339).
func (h *AuditHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.Error(apperrors.NewInvalidArgs("limit must be a positive integer"))
			c.Abort()
			return
		}
		limit = n
	}

	from, err := parseTimeParam(c.Query("from"))
	if err != nil {
		c.Error(apperrors.NewInvalidArgs("from must be RFC 3339"))
		c.Abort()
		return
	}
	to, err := parseTimeParam(c.Query("to"))
	if err != nil {
		c.Error(apperrors.NewInvalidArgs("to must be RFC 3339"))
		c.Abort()
		return
	}

	records, err := h.audit.List(c.Request.Context(), c.Query("tool"), limit, from, to)
	if err != nil {
		c.Error(apperrors.Wrap(err))
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
