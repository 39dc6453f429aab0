package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/port"
	"github.com/redis/go-redis/v9"
)

var _ port.Cache = (*RedisCache)(nil)

// RedisCache publishes order book depth snapshots for external readers.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

func key(marketID string) string { return "book:" + marketID }

func (c *RedisCache) SetOrderbook(ctx context.Context, marketID string, ob *domain.OrderbookSnapshot) error {
	b, err := json.Marshal(ob)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(marketID), b, c.ttl).Err()
}

func (c *RedisCache) GetOrderbook(ctx context.Context, marketID string) (*domain.OrderbookSnapshot, error) {
	b, err := c.client.Get(ctx, key(marketID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ob domain.OrderbookSnapshot
	if err := json.Unmarshal(b, &ob); err != nil {
		return nil, err
	}
	return &ob, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, marketID string) error {
	return c.client.Del(ctx, key(marketID)).Err()
}
