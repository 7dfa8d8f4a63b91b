package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// AcquireLock takes a best-effort advisory lock via SET NX. It returns
// false when another holder owns the key.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, key, time.Now().UnixMilli(), ttl).Result()
}

// ReleaseLock drops an advisory lock.
func (c *Client) ReleaseLock(ctx context.Context, key string) error {
	return c.Del(ctx, key).Err()
}

func LoginLockKey(userID string) string {
	return fmt.Sprintf("login_lock:%s", userID)
}
