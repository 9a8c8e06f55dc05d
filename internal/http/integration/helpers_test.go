package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/royalbook/royalbook/internal/auth"
	"github.com/royalbook/royalbook/internal/config"
	apphttp "github.com/royalbook/royalbook/internal/http"
)

const testJWTSecret = "test-secret-key"

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		Port:            0, // not used in tests
		JWTSecret:       testJWTSecret,
		TokenTTL:        time.Hour,
		StripeSecretKey: "sk_test_ignored",
		StripeBaseURL:   "http://127.0.0.1:1", // intent tests stub the gateway
	}
}

// setupTestRouter needs a real database; runs only when TEST_DB_DSN is set.
func setupTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping integration test")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}

	t.Cleanup(pool.Close)

	// discard logs during tests
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	router := apphttp.NewRouter(logger, testConfig(), pool, nil, nil)

	return router, pool
}

// reset db after every test

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE payments, bookings, reports, books, users, jobs CASCADE`)

	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func seedUser(t *testing.T, pool *pgxpool.Pool, email, role string) {
	t.Helper()
	now := time.Now().UTC()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, name, role, verified, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.NewString(), email, "Test "+role, role, role == "admin", now, now,
	)

	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func seedBook(t *testing.T, pool *pgxpool.Pool, sellerEmail string, priceCents int64) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO books (id, seller_email, title, category, price_cents, sold, advertise, image_url, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,false,true,'',$6,$7)`,
		id, sellerEmail, "Integration Test Book", "Testing", priceCents, now, now,
	)

	if err != nil {
		t.Fatalf("failed to seed book: %v", err)
	}

	return id
}

func tokenFor(t *testing.T, email, role string) string {
	t.Helper()

	token, err := auth.NewManager(testJWTSecret, time.Hour).Issue(email, role)

	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}

	return n
}
