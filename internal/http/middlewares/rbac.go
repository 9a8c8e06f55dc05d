package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/domain/user"
)

// RequireAdmin authorizes against the user directory, not the token: a role
// claim is only as fresh as issuance, while the stored record reflects
// demotions immediately. A missing directory record fails exactly like a
// role mismatch.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := EmailFromContext(c)

		if !ok || email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		u, err := m.users.GetByEmail(c.Request.Context(), email)

		if err != nil || u.Role != user.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin role required",
				},
			})
			return
		}

		c.Next()
	}
}
