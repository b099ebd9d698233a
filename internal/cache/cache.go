// Package cache keeps recently transcoded blobs around for a short window so
// a failed upload can be retried without paying the transcoding cost again.
// Cache failures are never fatal; a miss just means re-transcoding.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwhyun/mediagate/internal/logger"
	"github.com/jwhyun/mediagate/internal/metrics"
	"github.com/jwhyun/mediagate/internal/transcoder"
)

type ResultCache interface {
	Get(ctx context.Context, key string) (*transcoder.Result, bool)
	Set(ctx context.Context, key string, result *transcoder.Result)
}

var _ ResultCache = (*RedisCache)(nil)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*transcoder.Result, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.FromContext(ctx).Warn("result cache get failed", "key", key, "error", err)
		}
		metrics.RecordRetryCache("miss")
		return nil, false
	}

	var result transcoder.Result
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&result); err != nil {
		logger.FromContext(ctx).Warn("result cache decode failed", "key", key, "error", err)
		metrics.RecordRetryCache("miss")
		return nil, false
	}
	metrics.RecordRetryCache("hit")
	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, result *transcoder.Result) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(result); err != nil {
		logger.FromContext(ctx).Warn("result cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, buf.Bytes(), c.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("result cache set failed", "key", key, "error", err)
	}
}

var _ ResultCache = (*Noop)(nil)

// Noop is used when no redis is configured; every lookup misses.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) (*transcoder.Result, bool) { return nil, false }
func (Noop) Set(ctx context.Context, key string, result *transcoder.Result) {}
