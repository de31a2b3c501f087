package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xxxsen/kbridge/internal/pkg/response"
)

const ContextTenantIDKey = "tenant_id"

type tenantClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// TenantAuth resolves the calling tenant from a bearer token. When disabled
// (local/dev deployments) the tenant comes from the X-Tenant-Id header
// instead.
func TenantAuth(secret []byte, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if disabled {
			tenantID := strings.TrimSpace(c.GetHeader("X-Tenant-Id"))
			if tenantID == "" {
				response.Error(c, http.StatusUnauthorized, "unauthorized", "missing tenant header")
				c.Abort()
				return
			}
			c.Set(ContextTenantIDKey, tenantID)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid authorization")
			c.Abort()
			return
		}
		claims, err := parseToken(parts[1], secret)
		if err != nil || claims.TenantID == "" {
			response.Error(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextTenantIDKey, claims.TenantID)
		c.Next()
	}
}

func parseToken(token string, secret []byte) (*tenantClaims, error) {
	claims := &tenantClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
