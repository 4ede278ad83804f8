package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scrollsafe/internal/config"
	"scrollsafe/internal/media"
	"scrollsafe/internal/services"
)

// RedisCache is the shared verdict cache. Multiple daemon instances read it;
// only authoritative verdicts may be written, so ephemeral results never
// leak across sessions.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the configured Redis instance.
func NewRedisCache(cfg *config.Config) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.SharedCache.RedisAddr,
		Password: cfg.SharedCache.RedisPassword,
		DB:       cfg.SharedCache.RedisDB,
	})
	return &RedisCache{
		client: client,
		ttl:    time.Duration(cfg.SharedCache.TTLSeconds) * time.Second,
	}
}

// Ping verifies connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, platform, videoID string) (*media.Verdict, error) {
	raw, err := c.client.Get(ctx, cacheKey(platform, videoID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrRequest, "shared-cache", "get", "", err)
	}
	var verdict media.Verdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return nil, services.Wrap(services.ErrRequest, "shared-cache", "get", "decode verdict", err)
	}
	return &verdict, nil
}

func (c *RedisCache) Set(ctx context.Context, platform, videoID string, verdict media.Verdict) error {
	if !verdict.Authoritative() {
		return services.Wrap(services.ErrValidation, "shared-cache", "set", "ephemeral verdicts are not shared", nil)
	}
	raw, err := json.Marshal(verdict)
	if err != nil {
		return services.Wrap(services.ErrValidation, "shared-cache", "set", "encode verdict", err)
	}
	if err := c.client.Set(ctx, cacheKey(platform, videoID), raw, c.ttl).Err(); err != nil {
		return services.Wrap(services.ErrRequest, "shared-cache", "set", "", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
