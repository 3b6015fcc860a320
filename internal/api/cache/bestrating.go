package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"grimoire/internal/api/models"

	"github.com/redis/go-redis/v9"
)

const bestRatedKey = "books:bestrating"

// BestRatedCache is a cache-aside layer for the best-rating listing, the
// one read-heavy query whose result changes only when a book or rating is
// written. Writers call Invalidate; the next reader repopulates.
type BestRatedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBestRatedCache(client *redis.Client, ttl time.Duration) *BestRatedCache {
	return &BestRatedCache{client: client, ttl: ttl}
}

// Get returns the cached listing, or nil on a miss. A nil receiver always
// misses so the service works without redis configured.
func (c *BestRatedCache) Get(ctx context.Context) ([]models.Book, error) {
	if c == nil {
		return nil, nil
	}
	val, err := c.client.Get(ctx, bestRatedKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var books []models.Book
	if err := json.Unmarshal([]byte(val), &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *BestRatedCache) Set(ctx context.Context, books []models.Book) error {
	if c == nil {
		return nil
	}
	val, err := json.Marshal(books)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bestRatedKey, val, c.ttl).Err()
}

// Invalidate drops the cached listing. Deleting instead of rewriting keeps
// concurrent writers from racing each other with stale payloads.
func (c *BestRatedCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, bestRatedKey).Err()
}
