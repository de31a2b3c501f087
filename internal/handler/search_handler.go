package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbridge/internal/model"
	"github.com/xxxsen/kbridge/internal/pkg/response"
	"github.com/xxxsen/kbridge/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	mode, err := model.ParseSearchMode(c.Query("mode"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			response.Error(c, http.StatusBadRequest, "invalid", "limit must be a positive integer")
			return
		}
	}
	filters := model.SearchFilters{
		SourceType: c.Query("source_type"),
		FileType:   c.Query("file_type"),
	}
	if raw := c.Query("processed_after"); raw != "" {
		filters.ProcessedAfter, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid", "processed_after must be a unix timestamp")
			return
		}
	}
	if raw := c.Query("processed_until"); raw != "" {
		filters.ProcessedUntil, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid", "processed_until must be a unix timestamp")
			return
		}
	}
	results, err := h.search.Search(c.Request.Context(), getTenantID(c), query, mode, filters, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	response.Success(c, gin.H{"mode": mode.String(), "results": results})
}
