package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/middleware"
)

// ClaimsKey is the gin context key holding verified admin claims.
const ClaimsKey = "admin_claims"

// RequireAdmin rejects requests without a valid admin bearer token.
func RequireAdmin(g *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims, err := g.Authorize(token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the admin claims stored by RequireAdmin.
func GetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

func abortUnauthorized(c *gin.Context, details string) {
	c.Header("WWW-Authenticate", `Bearer realm="trialiq-admin"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, domain.NewAPIError(
		domain.ErrCodeUnauthorized, "admin authorization required", details, c.GetString(middleware.CorrelationIDKey),
	))
}
