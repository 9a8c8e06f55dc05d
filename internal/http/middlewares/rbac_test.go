package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/auth"
	"github.com/royalbook/royalbook/internal/domain/user"
	"github.com/royalbook/royalbook/internal/http/middlewares"
)

func TestRequireAdmin(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	// the token says admin; the directory has the final word
	staleAdminToken, err := manager.Issue("demoted@example.com", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	adminToken, err := manager.Issue("admin@example.com", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	directory := &fakeDirectory{
		getFn: func(ctx context.Context, email string) (user.User, error) {
			switch email {
			case "admin@example.com":
				return user.User{Email: email, Role: user.RoleAdmin}, nil
			case "demoted@example.com":
				return user.User{Email: email, Role: user.RoleUser}, nil
			default:
				return user.User{}, user.ErrNotFound
			}
		},
	}

	tests := []struct {
		name           string
		token          string
		directory      middlewares.UserDirectory
		wantStatusCode int
	}{
		{
			name:           "admin_passes",
			token:          adminToken,
			directory:      directory,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "stale_admin_claim_is_403",
			token:          staleAdminToken,
			directory:      directory,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:  "directory_error_is_403",
			token: adminToken,
			directory: &fakeDirectory{
				getFn: func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, errors.New("db down")
				},
			},
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			m := middlewares.NewAuthMiddleware(manager, nil, tt.directory)

			r := gin.New()
			r.GET("/admin", m.RequireAuth(), m.RequireAdmin(), okHandler)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
