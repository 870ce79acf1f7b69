package cache

import (
	"context"
	"errors"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 5 * time.Second

// RedisArtifactCache stores derived artifacts (transcoded audio, HLS
// manifests and segments, waveforms) in Redis with per-entry TTLs.
type RedisArtifactCache struct {
	client redis.Cmdable
}

// NewRedisArtifactCache wraps a Redis client as an artifact cache.
func NewRedisArtifactCache(client redis.Cmdable) *RedisArtifactCache {
	return &RedisArtifactCache{client: client}
}

// Get fetches an artifact. A missing key is (nil, false, nil). Transient
// read errors are retried once with backoff before being reported.
func (c *RedisArtifactCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var lastErr error
	delay := 100 * time.Millisecond
	for attempt := 0; attempt < 2; attempt++ {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			logger.Debug("artifact cache hit",
				logger.String("key", key),
				logger.Int("size", len(data)))
			return data, true, nil
		}
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		lastErr = err
		time.Sleep(delay)
		delay *= 2
	}
	return nil, false, lastErr
}

// Put stores an artifact with the given TTL. Entries are written once on
// pipeline success and never mutated; expiry is the only removal path.
func (c *RedisArtifactCache) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return err
	}

	logger.Debug("artifact cached",
		logger.String("key", key),
		logger.Int("size", len(payload)),
		logger.Duration("ttl", ttl))
	return nil
}
