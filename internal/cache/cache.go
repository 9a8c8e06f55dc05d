package cache

import (
	"sync"
	"time"
)

// TTL is a small in-process cache for values that are expensive to
// recompute but tolerate short staleness, such as the category list.
type TTL[T any] struct {
	mu      sync.Mutex
	value   T
	setAt   time.Time
	ttl     time.Duration
	hasItem bool
}

func NewTTL[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{ttl: ttl}
}

func (c *TTL[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T

	if !c.hasItem {
		return zero, false
	}

	if time.Since(c.setAt) > c.ttl {
		c.hasItem = false
		return zero, false
	}

	return c.value, true
}

func (c *TTL[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	c.setAt = time.Now()
	c.hasItem = true
}

func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hasItem = false
}
