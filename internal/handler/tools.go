package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/dispatch"
	"github.com/agentgate/agentgate/internal/middleware"
	"github.com/agentgate/agentgate/internal/model"
	"github.com/agentgate/agentgate/internal/pkg/apperrors"
)

type ToolsHandler struct {
	dispatcher *dispatch.Dispatcher
}

func NewToolsHandler(d *dispatch.Dispatcher) *ToolsHandler {
	return &ToolsHandler{dispatcher: d}
}

// Dispatch handles POST /v1/tools/dispatch. The result envelope always
// names the tool; the HTTP status follows the error taxonomy.
func (h *ToolsHandler) Dispatch(c *gin.Context) {
	var req model.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidArgs("body must be {name, arguments}: " + err.Error()))
		c.Abort()
		return
	}

	middleware.SetAuditTool(c, req.Tool)

	result := h.dispatcher.Dispatch(c.Request.Context(), req.Tool, req.Arguments)

	status := http.StatusOK
	if result.Error != nil {
		status = apperrors.StatusFor(apperrors.ErrorType(result.Error.Type))
		middleware.AddAuditContext(c, "error_type", result.Error.Type)
	}
	c.JSON(status, result)
}

// List handles GET /v1/tools.
func (h *ToolsHandler) List(c *gin.Context) {
	toolList := h.dispatcher.List()
	descriptors := make([]model.ToolDescriptor, 0, len(toolList))
	for _, t := range toolList {
		descriptors = append(descriptors, model.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			ReadOnly:    t.ReadOnly,
			Params:      t.Schema.Params,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": descriptors, "count": len(descriptors)})
}
