package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/domain/user"
	"github.com/royalbook/royalbook/internal/utils"
)

type UsersStore interface {
	Upsert(ctx context.Context, req user.UpsertRequest) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	ListByRole(ctx context.Context, role string) ([]user.User, error)
	SetVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) (string, error)
}

type TokenIssuer interface {
	Issue(email, role string) (string, error)
}

// SessionRevoker invalidates every outstanding token for an email.
type SessionRevoker interface {
	Deny(ctx context.Context, email string) error
}

type UsersHandler struct {
	repo    UsersStore
	tokens  TokenIssuer
	revoker SessionRevoker
}

func NewUsersHandler(repo UsersStore, tokens TokenIssuer, revoker SessionRevoker) *UsersHandler {
	return &UsersHandler{repo: repo, tokens: tokens, revoker: revoker}
}

// Upsert creates or refreshes the account for the email in the URL and hands
// back a session token. The role of an existing account is never changed here.
func (h *UsersHandler) Upsert(ctx *gin.Context) {
	email := ctx.Param("email")

	var req user.UpsertRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// force URL param as the source of truth

	req.Email = email

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.Upsert(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not save user")
		fmt.Println(err)
		return
	}

	token, err := h.tokens.Issue(u.Email, u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not issue token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) ListSellers(ctx *gin.Context) {
	h.listByRole(ctx, user.RoleSeller)
}

func (h *UsersHandler) ListBuyers(ctx *gin.Context) {
	h.listByRole(ctx, user.RoleUser)
}

func (h *UsersHandler) listByRole(ctx *gin.Context, role string) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, err := h.repo.ListByRole(cctx, role)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count": len(users),
		"users": users,
	})
}

func (h *UsersHandler) Verify(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", "user id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.SetVerified(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not verify user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"verified": true})
}

// Delete removes the account and revokes its outstanding sessions so a
// deleted user cannot keep calling the API with an old token.
func (h *UsersHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", "user id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	email, err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	if h.revoker != nil {
		err = h.revoker.Deny(cctx, email)
		if err != nil {
			// the account is gone either way, the token will expire on its own
			fmt.Println(err)
		}
	}

	ctx.Status(http.StatusNoContent)
}

// VerifySeller tells the storefront whether a listing's seller has been
// vetted by an admin. Unknown emails and plain buyers report false.
func (h *UsersHandler) VerifySeller(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			ctx.JSON(http.StatusOK, gin.H{"verified": false})
			return
		}

		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"verified": u.Role == user.RoleSeller && u.Verified,
	})
}
