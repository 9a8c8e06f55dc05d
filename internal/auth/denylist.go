package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist blocks all outstanding tokens for an email until they would have
// expired anyway. Stateless tokens cannot be recalled individually, so the
// key TTL equals the token window: once it lapses, every token issued before
// the denial has expired too and the key can go.
type Denylist struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func NewDenylist(redisdb *redis.Client, ttl time.Duration) *Denylist {
	return &Denylist{redisdb: redisdb, ttl: ttl}
}

func denyKey(email string) string {
	return "session:denied:" + email
}

func (d *Denylist) Deny(ctx context.Context, email string) error {
	return d.redisdb.Set(ctx, denyKey(email), time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}

// IsDenied fails open on store errors: a dead redis must not lock every
// user out of the API.
func (d *Denylist) IsDenied(ctx context.Context, email string) bool {
	n, err := d.redisdb.Exists(ctx, denyKey(email)).Result()

	if err != nil {
		return false
	}

	return n > 0
}
