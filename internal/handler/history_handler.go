package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbridge/internal/pkg/response"
	"github.com/xxxsen/kbridge/internal/service"
)

type HistoryHandler struct {
	history *service.HistoryService
}

func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

func (h *HistoryHandler) List(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"
	versions, err := h.history.List(c.Request.Context(), getTenantID(c), c.Query("file_name"), activeOnly)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, versions)
}
