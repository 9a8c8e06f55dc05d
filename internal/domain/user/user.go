package user

import (
	"errors"
	"time"
)

const (
	RoleUser   = "user"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("user not found")

type UpsertRequest struct {
	// Email comes from the URL param, never the body.
	Email string `json:"-"`
	Name  string `json:"name" binding:"required,min=2,max=120"`
	Role  string `json:"role" binding:"omitempty,oneof=user seller admin"`
}
