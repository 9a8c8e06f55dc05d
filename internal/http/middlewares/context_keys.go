package middlewares

import "github.com/gin-gonic/gin"

const (
	ctxEmailKey  = "auth.email"
	ctxRoleKey   = "auth.role"
	CtxRequestID = "request_id"
)

// SetIdentity stashes the caller's identity on the request context. RequireAuth
// calls this after verifying the token; tests use it to stand in for the gate.
func SetIdentity(c *gin.Context, email, role string) {
	c.Set(ctxEmailKey, email)
	c.Set(ctxRoleKey, role)
}
