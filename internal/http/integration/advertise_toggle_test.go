package integration_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
)

// The toggle is a single UPDATE, so n flips always land on the state n flips
// produce, no matter how they interleave.
func TestConcurrentAdvertiseToggleDeterministic(t *testing.T) {
	router, pool := setupTestRouter(t)

	resetDB(t, pool)
	defer resetDB(t, pool)

	seedUser(t, pool, "seller@example.com", "seller")
	bookID := seedBook(t, pool, "seller@example.com", 2500)

	sellerToken := tokenFor(t, "seller@example.com", "seller")

	// seeded with advertise = true
	const flips = 10 // even, so we must end where we started

	var wg sync.WaitGroup

	for i := 0; i < flips; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			w := doJSON(t, router, http.MethodPut, "/books/"+bookID+"/advertise", sellerToken, "")

			if w.Code != http.StatusOK {
				t.Errorf("toggle failed: status %d, body=%s", w.Code, w.Body.String())
			}
		}()
	}

	wg.Wait()

	var advertise bool
	err := pool.QueryRow(context.Background(),
		`SELECT advertise FROM books WHERE id = $1`, bookID).Scan(&advertise)

	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}

	if !advertise {
		t.Errorf("after %d flips advertise=false, want true (the seeded state)", flips)
	}
}

func TestToggleAdvertiseOwnershipEnforced(t *testing.T) {
	router, pool := setupTestRouter(t)

	resetDB(t, pool)
	defer resetDB(t, pool)

	seedUser(t, pool, "seller@example.com", "seller")
	seedUser(t, pool, "other@example.com", "seller")
	bookID := seedBook(t, pool, "seller@example.com", 2500)

	otherToken := tokenFor(t, "other@example.com", "seller")

	w := doJSON(t, router, http.MethodPut, "/books/"+bookID+"/advertise", otherToken, "")

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403, body=%s", w.Code, w.Body.String())
	}
}
