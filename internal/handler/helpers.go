package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/kbridge/internal/middleware"
	"github.com/xxxsen/kbridge/internal/pkg/response"
)

func getTenantID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextTenantIDKey)
	tenantID, _ := value.(string)
	return tenantID
}

func handleError(c *gin.Context, err error) {
	response.HandleError(c, err)
}
