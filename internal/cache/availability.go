package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache keeps a short-lived snapshot of each match's free seat
// numbers in Redis. It is best-effort: a stale entry only produces an
// optimistic answer that the locked reserve path will reject.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func New(cfg Config) (*AvailabilityCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}

	return &AvailabilityCache{client: rdb, ttl: ttl}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests with redismock.
func NewWithClient(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func matchKey(matchID int64) string {
	return fmt.Sprintf("match:%d:available", matchID)
}

// AvailableNumbers returns the cached free seat numbers for a match. The
// second return value is false on a cache miss.
func (c *AvailabilityCache) AvailableNumbers(ctx context.Context, matchID int64) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, matchKey(matchID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup error: %w", err)
	}

	var numbers []string
	if err := json.Unmarshal([]byte(raw), &numbers); err != nil {
		return nil, false, fmt.Errorf("invalid cache entry: %w", err)
	}
	return numbers, true, nil
}

// StoreNumbers caches the free seat numbers for a match with the configured TTL.
func (c *AvailabilityCache) StoreNumbers(ctx context.Context, matchID int64, numbers []string) error {
	raw, err := json.Marshal(numbers)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, matchKey(matchID), raw, c.ttl).Err()
}

// Invalidate drops the cached snapshots for the given matches. Called after
// every claim and release so the next read refills from the store.
func (c *AvailabilityCache) Invalidate(ctx context.Context, matchIDs ...int64) error {
	if len(matchIDs) == 0 {
		return nil
	}
	keys := make([]string, len(matchIDs))
	for i, id := range matchIDs {
		keys[i] = matchKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *AvailabilityCache) Close() error {
	return c.client.Close()
}
