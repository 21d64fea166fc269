package cache

import (
	"context"
	"time"
)

const revokedPrefix = "session:revoked:"

// RevokeSession marks a session credential ID as revoked until the token
// would have expired on its own, after which the entry is pointless.
func (c *Cache) RevokeSession(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	return c.RDB.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
}

// SessionRevoked reports whether a session credential ID was revoked.
// Any redis error is returned so callers can fail closed.
func (c *Cache) SessionRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.RDB.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
