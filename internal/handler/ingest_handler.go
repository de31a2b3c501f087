package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbridge/internal/model"
	"github.com/xxxsen/kbridge/internal/pkg/response"
	"github.com/xxxsen/kbridge/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type ingestItemRequest struct {
	Type     string `json:"type" binding:"required"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Title    string `json:"title"`
	URI      string `json:"uri"`
	// Data carries the raw file content, base64 encoded.
	Data string `json:"data"`
}

type ingestRequest struct {
	Items []ingestItemRequest `json:"items" binding:"required"`
}

func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	items := make([]model.IngestItem, 0, len(req.Items))
	for _, it := range req.Items {
		data, err := base64.StdEncoding.DecodeString(it.Data)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid", "item data is not valid base64")
			return
		}
		items = append(items, model.IngestItem{
			Type:     it.Type,
			FileName: it.FileName,
			FileType: it.FileType,
			Title:    it.Title,
			URI:      it.URI,
			Data:     data,
		})
	}
	result, err := h.ingest.Ingest(c.Request.Context(), getTenantID(c), items)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
