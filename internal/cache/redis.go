// Package cache provides the content-addressed embedding cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inkwelldocs/inkwell/internal/core"
)

// RedisCache stores one vector per distinct text, keyed by a digest of
// the exact content, so identical chunks across documents share an
// entry. Entries never expire. The cache is advisory: any Redis error
// is logged and reported as a miss. See core.EmbeddingCache.
type RedisCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisCache(addr string, db int, log *zap.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisCache{client: client, log: log}
}

// key digests the exact text; case and whitespace both matter.
func key(text string) string {
	digest := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s", hex.EncodeToString(digest[:]))
}

func (c *RedisCache) Get(ctx context.Context, text string) ([]float32, bool) {
	payload, err := c.client.Get(ctx, key(text)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Debug("embedding cache get failed, treating as miss", zap.Error(err))
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(payload, &vec); err != nil {
		c.log.Debug("embedding cache entry corrupt, treating as miss", zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Put(ctx context.Context, text string, vector []float32) {
	payload, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(text), payload, 0).Err(); err != nil {
		c.log.Debug("embedding cache put failed, skipping", zap.Error(err))
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ core.EmbeddingCache = (*RedisCache)(nil)
