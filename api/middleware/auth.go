package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/renderscraper/models"
)

// InternalTokenHeader carries the shared secret of internal callers.
const InternalTokenHeader = "X-Internal-Token"

// Auth returns shared-secret authentication middleware.
//
// Supports two header styles:
//
//	X-Internal-Token: <token>
//	Authorization: Bearer <token>
//
// If token is empty, the middleware is a no-op (open access).
func Auth(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) { c.Next() }
	}
	expected := []byte(token)

	return func(c *gin.Context) {
		got := extractToken(c)
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeUnauthorized,
					Message: "Unauthorized",
				},
			})
			return
		}

		c.Next()
	}
}

// extractToken tries X-Internal-Token first, then Authorization: Bearer.
func extractToken(c *gin.Context) string {
	if token := c.GetHeader(InternalTokenHeader); token != "" {
		return token
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
