package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbridge/internal/middleware"
)

type RouterDeps struct {
	Ingest       *IngestHandler
	Search       *SearchHandler
	Documents    *DocumentHandler
	History      *HistoryHandler
	JWTSecret    []byte
	AuthDisabled bool
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.TenantAuth(deps.JWTSecret, deps.AuthDisabled))

	authGroup.POST("/ingest", deps.Ingest.Ingest)
	authGroup.GET("/search", deps.Search.Search)
	authGroup.GET("/history", deps.History.List)
	authGroup.GET("/stats", deps.Documents.Stats)

	authGroup.PUT("/documents/:id/content", deps.Documents.UpdateContent)
	authGroup.PATCH("/documents/:id/metadata", deps.Documents.UpdateMetadata)
	authGroup.PATCH("/documents/:id/status", deps.Documents.UpdateStatus)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.POST("/documents/bulk-delete", deps.Documents.BulkDelete)
}
