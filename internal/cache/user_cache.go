// Package cache keeps hot user snapshots in Redis so entitlement checks do
// not hit Postgres on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/go-redis/redis/v8"
)

// UserCache stores user snapshots with a TTL. A miss is not an error; callers
// fall back to the repository.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache creates a cache with the given snapshot TTL.
func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &UserCache{client: client, ttl: ttl}
}

func userKey(userID string) string {
	return fmt.Sprintf("user_snapshot:%s", userID)
}

// Get returns the cached snapshot, or (nil, nil) on a miss.
func (c *UserCache) Get(ctx context.Context, userID string) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for user %s: %w", userID, err)
	}
	var u model.User
	if err := json.Unmarshal(data, &u); err != nil {
		// A corrupt entry is treated as a miss.
		_ = c.client.Del(ctx, userKey(userID)).Err()
		return nil, nil
	}
	return &u, nil
}

// Set stores the snapshot.
func (c *UserCache) Set(ctx context.Context, u *model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("cache marshal for user %s: %w", u.ID, err)
	}
	if err := c.client.Set(ctx, userKey(u.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for user %s: %w", u.ID, err)
	}
	return nil
}

// Invalidate drops the snapshot. Used after any out-of-band mutation (admin
// actions, the expiry sweep).
func (c *UserCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate for user %s: %w", userID, err)
	}
	return nil
}
