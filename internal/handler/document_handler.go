package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbridge/internal/pkg/response"
	"github.com/xxxsen/kbridge/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type updateContentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *DocumentHandler) UpdateContent(c *gin.Context) {
	var req updateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	first, err := h.documents.UpdateContent(c.Request.Context(), getTenantID(c), c.Param("id"), req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"document_id":  first.DocumentID,
		"version":      first.Version,
		"content_hash": first.ContentHash,
	})
}

type updateMetadataRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	BotConfig   *string `json:"bot_config"`
	IsActive    *bool   `json:"is_active"`
}

func (h *DocumentHandler) UpdateMetadata(c *gin.Context) {
	var req updateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	err := h.documents.UpdateMetadata(c.Request.Context(), getTenantID(c), c.Param("id"), service.MetadataPatch{
		Title:       req.Title,
		Description: req.Description,
		BotConfig:   req.BotConfig,
		IsActive:    req.IsActive,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	if err := h.documents.UpdateStatus(c.Request.Context(), getTenantID(c), c.Param("id"), req.Status); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	result, err := h.documents.Delete(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.documents.TenantStats(c.Request.Context(), getTenantID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

type bulkDeleteRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required"`
}

func (h *DocumentHandler) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	result, err := h.documents.BulkDelete(c.Request.Context(), getTenantID(c), req.DocumentIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
