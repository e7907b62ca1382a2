package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper marks push deliveries so retried, byte-identical pushes can be
// acknowledged without re-writing storage.
type Deduper interface {
	FirstDelivery(ctx context.Context, key string) (bool, error)
}

type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) Deduper {
	return &redisDeduper{client: client, ttl: ttl}
}

// FirstDelivery returns true the first time a key is seen within the TTL
// window. SetNX makes the check-and-mark atomic across server replicas.
func (d *redisDeduper) FirstDelivery(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark delivery: %w", err)
	}
	return ok, nil
}
