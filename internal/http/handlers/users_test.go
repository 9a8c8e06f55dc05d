package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/auth"
	"github.com/royalbook/royalbook/internal/domain/user"
	"github.com/royalbook/royalbook/internal/http/handlers"
)

type fakeUsersRepo struct {
	upsertFn      func(ctx context.Context, req user.UpsertRequest) (user.User, error)
	getByEmailFn  func(ctx context.Context, email string) (user.User, error)
	listByRoleFn  func(ctx context.Context, role string) ([]user.User, error)
	setVerifiedFn func(ctx context.Context, id string) error
	deleteFn      func(ctx context.Context, id string) (string, error)
}

func (f *fakeUsersRepo) Upsert(ctx context.Context, req user.UpsertRequest) (user.User, error) {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, req)
	}
	return user.User{}, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, nil
}

func (f *fakeUsersRepo) ListByRole(ctx context.Context, role string) ([]user.User, error) {
	if f.listByRoleFn != nil {
		return f.listByRoleFn(ctx, role)
	}
	return nil, nil
}

func (f *fakeUsersRepo) SetVerified(ctx context.Context, id string) error {
	if f.setVerifiedFn != nil {
		return f.setVerifiedFn(ctx, id)
	}
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) (string, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return "", nil
}

type fakeRevoker struct {
	denied []string
}

func (f *fakeRevoker) Deny(ctx context.Context, email string) error {
	f.denied = append(f.denied, email)
	return nil
}

func TestUpsertUserIssuesToken(t *testing.T) {
	now := time.Now().UTC()
	manager := auth.NewManager("test-secret", time.Hour)

	repo := &fakeUsersRepo{
		upsertFn: func(ctx context.Context, req user.UpsertRequest) (user.User, error) {
			if req.Email != "buyer@example.com" {
				return user.User{}, errors.New("email not taken from url")
			}
			return user.User{
				ID:        newUUID(),
				Email:     req.Email,
				Name:      req.Name,
				Role:      user.RoleUser,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		},
	}

	h := handlers.NewUsersHandler(repo, manager, nil)

	r := gin.New()
	r.PUT("/user/:email", h.Upsert)

	body := `{"name": "Pat Doe", "email": "spoofed@example.com"}`

	req := httptest.NewRequest(http.MethodPut, "/user/buyer@example.com", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}

	if resp.User.Email != "buyer@example.com" {
		t.Errorf("got email %q, want buyer@example.com", resp.User.Email)
	}

	// the issued token must verify and carry the stored identity
	claims, err := manager.Verify(resp.Token)

	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}

	if claims.Email != "buyer@example.com" || claims.Role != user.RoleUser {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestUpsertUserRejectsMissingName(t *testing.T) {
	h := handlers.NewUsersHandler(&fakeUsersRepo{}, auth.NewManager("s", time.Hour), nil)

	r := gin.New()
	r.PUT("/user/:email", h.Upsert)

	req := httptest.NewRequest(http.MethodPut, "/user/buyer@example.com", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteUserRevokesSessions(t *testing.T) {
	userID := newUUID()
	revoker := &fakeRevoker{}

	repo := &fakeUsersRepo{
		deleteFn: func(ctx context.Context, id string) (string, error) {
			if id != userID {
				return "", user.ErrNotFound
			}
			return "gone@example.com", nil
		},
	}

	h := handlers.NewUsersHandler(repo, auth.NewManager("s", time.Hour), revoker)

	r := setupAuthedRouter(http.MethodDelete, "/users/:id", "admin@example.com", "admin", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+userID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if len(revoker.denied) != 1 || revoker.denied[0] != "gone@example.com" {
		t.Errorf("denylist got %v, want [gone@example.com]", revoker.denied)
	}
}

func TestVerifySellerHandler(t *testing.T) {
	tests := []struct {
		name         string
		getByEmailFn func(ctx context.Context, email string) (user.User, error)
		wantVerified bool
	}{
		{
			name: "verified_seller",
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return user.User{Email: email, Role: user.RoleSeller, Verified: true}, nil
			},
			wantVerified: true,
		},
		{
			name: "unverified_seller",
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return user.User{Email: email, Role: user.RoleSeller, Verified: false}, nil
			},
			wantVerified: false,
		},
		{
			name: "buyer_is_never_a_verified_seller",
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return user.User{Email: email, Role: user.RoleUser, Verified: true}, nil
			},
			wantVerified: false,
		},
		{
			name: "unknown_email",
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return user.User{}, user.ErrNotFound
			},
			wantVerified: false,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewUsersHandler(&fakeUsersRepo{getByEmailFn: tt.getByEmailFn}, auth.NewManager("s", time.Hour), nil)

			r := gin.New()
			r.GET("/verify-seller/:email", h.VerifySeller)

			req := httptest.NewRequest(http.MethodGet, "/verify-seller/seller@example.com", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
			}

			var resp struct {
				Verified bool `json:"verified"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad body: %v", err)
			}

			if resp.Verified != tt.wantVerified {
				t.Errorf("got verified=%v, want %v", resp.Verified, tt.wantVerified)
			}
		})
	}
}
