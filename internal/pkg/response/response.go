package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
}

func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"code": code, "message": message})
}

func HandleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case appErr.IsNotFound(err):
		Error(c, http.StatusNotFound, "not_found", err.Error())
	case appErr.IsStore(err):
		Error(c, http.StatusServiceUnavailable, "store_unavailable", "record store unavailable")
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, appErr.ErrNoContent):
		Error(c, http.StatusBadRequest, "invalid", err.Error())
	case errors.Is(err, appErr.ErrConflict):
		Error(c, http.StatusConflict, "conflict", "conflict")
	default:
		Error(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
