package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/platformkit/auth-service/pkg/helpers"
	"github.com/platformkit/auth-service/pkg/response"
)

const CtxUserIDKey = "userID"

// Auth validates the Authorization bearer token and injects the subject
// into the Gin context. The session token is self-contained; no lookup
// beyond signature and claim validation is performed.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortError[any](c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			response.AbortError[any](c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		c.Set(CtxUserIDKey, claims.Subject)
		c.Set("userEmail", claims.Email)
		c.Set("userRoles", claims.Roles)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
