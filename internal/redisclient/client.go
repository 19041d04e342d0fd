package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetProfile retrieves a cached profile payload; redis.Nil maps to a
// plain miss
func (c *Client) GetProfile(ctx context.Context, userID int64) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, profileKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// SetProfile caches a profile payload with TTL
func (c *Client) SetProfile(ctx context.Context, userID int64, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, profileKey(userID), payload, ttl).Err()
}

// InvalidateProfile drops a cached profile
func (c *Client) InvalidateProfile(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, profileKey(userID)).Err()
}

// AcquireLock tries to take a lock once; the token identifies the holder
func (c *Client) AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, "lock:"+lockKey, token, ttl).Result()
}

// ReleaseLock releases a lock if the token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{"lock:" + lockKey}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

func profileKey(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}

// Locker serializes cascades across service instances. Keys are taken in
// sorted order to keep multi-key acquisition deadlock-free.
type Locker struct {
	client *Client
	ttl    time.Duration
	retry  time.Duration
}

// NewLocker creates a distributed locker over the Redis client
func NewLocker(client *Client) *Locker {
	return &Locker{
		client: client,
		ttl:    10 * time.Second,
		retry:  25 * time.Millisecond,
	}
}

// Lock acquires every key, waiting on contention until the context
// expires, and returns the release function
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	token := uuid.New().String()
	held := make([]string, 0, len(sorted))

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = l.client.ReleaseLock(releaseCtx, held[i], token)
		}
	}

	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		for {
			ok, err := l.client.AcquireLock(ctx, key, token, l.ttl)
			if err != nil {
				release()
				return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
			}
			if ok {
				held = append(held, key)
				break
			}
			select {
			case <-ctx.Done():
				release()
				return nil, ctx.Err()
			case <-time.After(l.retry):
			}
		}
	}

	return release, nil
}
