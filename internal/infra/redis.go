package infra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates a go-redis client and pings it once.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

const priceKeyPrefix = "price:"

// PriceCache stores public price lookups by scanned code. A nil *PriceCache
// is valid and caches nothing.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPriceCache(rdb *redis.Client, ttl time.Duration) *PriceCache {
	if rdb == nil {
		return nil
	}
	return &PriceCache{rdb: rdb, ttl: ttl}
}

// Get decodes the cached entry into dst and reports whether there was one.
func (c *PriceCache) Get(ctx context.Context, code string, dst interface{}) bool {
	if c == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, priceKeyPrefix+code).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (c *PriceCache) Set(ctx context.Context, code string, v interface{}) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, priceKeyPrefix+code, b, c.ttl).Err()
}

// Evict drops the entries of every given code.
func (c *PriceCache) Evict(ctx context.Context, codes ...string) error {
	if c == nil || len(codes) == 0 {
		return nil
	}
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = priceKeyPrefix + code
	}
	err := c.rdb.Del(ctx, keys...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
