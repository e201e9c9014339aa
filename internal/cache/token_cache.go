package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// ErrUnavailable marks a failure of the backing store, as opposed to a miss.
var ErrUnavailable = errors.New("token cache unavailable")

type TokenCache struct {
	client *redisv9.Client
	prefix string
}

func NewTokenCache(client *redisv9.Client, prefix string) *TokenCache {
	return &TokenCache{
		client: client,
		prefix: prefix,
	}
}

// Get returns the token stored under key. A missing or expired entry yields
// found=false with a nil error.
func (c *TokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get token: %v", ErrUnavailable, err)
	}
	return token, true, nil
}

// Set replaces any entry under key. Entries with a non-positive ttl are not stored.
func (c *TokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.prefix+key, token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set token: %v", ErrUnavailable, err)
	}
	return nil
}
