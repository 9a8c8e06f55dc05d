package cache

import (
	"testing"
	"time"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTL[[]string](time.Minute)

	if _, ok := c.Get(); ok {
		t.Fatal("empty cache reported a hit")
	}

	c.Set([]string{"a", "b"})

	got, ok := c.Get()

	if !ok || len(got) != 2 {
		t.Fatalf("got %v ok=%v, want [a b] true", got, ok)
	}
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTL[int](10 * time.Millisecond)

	c.Set(42)

	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get(); ok {
		t.Fatal("expired entry reported a hit")
	}
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := NewTTL[int](time.Minute)

	c.Set(42)
	c.Invalidate()

	if _, ok := c.Get(); ok {
		t.Fatal("invalidated entry reported a hit")
	}
}
