package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/auth"
	"github.com/royalbook/royalbook/internal/domain/user"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type SessionDenylist interface {
	IsDenied(ctx context.Context, email string) bool
}

type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type AuthMiddleware struct {
	jwt      TokenVerifier
	denylist SessionDenylist // nil disables revocation checks
	users    UserDirectory
}

func NewAuthMiddleware(jwt TokenVerifier, denylist SessionDenylist, users UserDirectory) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, denylist: denylist, users: users}
}

// RequireAuth is the first stage of the gate. A missing credential is 401;
// a presented-but-invalid one is 403. Authorization stages never see an
// unauthenticated request.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing or invalid Authorization header",
				},
			})
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing or invalid access token",
				},
			})
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Invalid or expired access token",
				},
			})
			return
		}

		if m.denylist != nil && m.denylist.IsDenied(c.Request.Context(), claims.Email) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Session has been revoked",
				},
			})
			return
		}

		SetIdentity(c, claims.Email, claims.Role)

		c.Next()
	}
}

// RequireSelf restricts a route whose :email param names the resource owner
// to that owner.
func (m *AuthMiddleware) RequireSelf(param string) gin.HandlerFunc {
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

		if c.Param(param) != email {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "You can only access your own resources",
				},
			})
			return
		}

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
